package parser

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

const sampleStatement = `BNP PARIBAS                       RELEVE DE COMPTE CHEQUES
M DUPONT JEAN
du 14 décembre 2024 au 13 janvier 2025
SOLDE CREDITEUR AU 13.12.2024 1 000,00
Date Nature des opérations Valeur Débit Crédit
16.12 16.12 45,90 CB CARREFOUR MARKET 14/12

20.12 20.12 1 200,00
VIR SEPA RECU /DE ACME SA
/MOTIF SALAIRE DECEMBRE
P. 1/2
Date Nature des opérations Valeur Débit Crédit
03.01 03.01 1,50* COMMISSIONS
COTIS ESPRIT LIBRE
31.12 02.01 300,00 PRLV SEPA LOYER
ECH/020125 ID EMETTEUR/FR12ZZZ
TOTAL DES OPERATIONS 347,40 1 200,00
SOLDE CREDITEUR AU 13.01.2025 1 852,60
`

func newBNP(t *testing.T) *Parser {
	t.Helper()
	p, err := New(BNP())
	require.NoError(t, err)
	return p
}

func TestParseStatement(t *testing.T) {
	p := newBNP(t)

	st, err := p.ParseDocument("releve_2025_01.pdf", sampleStatement)
	require.NoError(t, err)

	assert.Equal(t, "releve_2025_01.pdf", st.Source)
	assert.Equal(t, models.MustDate(2024, time.December, 14), st.Window.Start)
	assert.Equal(t, models.MustDate(2025, time.January, 13), st.Window.End)
	assert.Equal(t, st.Window.End, st.PeriodEnd)

	assert.Equal(t, models.Balance{Polarity: models.Credit, Amount: 100000, Date: models.MustDate(2024, time.December, 13)}, st.Opening)
	assert.Equal(t, models.Balance{Polarity: models.Credit, Amount: 185260, Date: models.MustDate(2025, time.January, 13)}, st.Closing)
	assert.Equal(t, models.DeclaredTotals{Debit: 34740, Credit: 120000}, st.Totals)

	want := []models.Transaction{
		{
			Date:        models.MustDate(2024, time.December, 16),
			ValueDate:   models.MustDate(2024, time.December, 16),
			Description: "CB CARREFOUR MARKET 14/12",
			Amount:      4590,
			Polarity:    models.Debit,
		},
		{
			Date:        models.MustDate(2024, time.December, 20),
			ValueDate:   models.MustDate(2024, time.December, 20),
			Description: "VIR SEPA RECU /DE ACME SA /MOTIF SALAIRE DECEMBRE",
			Amount:      120000,
			Polarity:    models.Credit,
		},
		{
			Date:        models.MustDate(2025, time.January, 3),
			ValueDate:   models.MustDate(2025, time.January, 3),
			Description: "* COMMISSIONS COTIS ESPRIT LIBRE",
			Amount:      150,
			Polarity:    models.Debit,
		},
		{
			Date:        models.MustDate(2024, time.December, 31),
			ValueDate:   models.MustDate(2025, time.January, 2),
			Description: "PRLV SEPA LOYER ECH/020125 ID EMETTEUR/FR12ZZZ",
			Amount:      30000,
			Polarity:    models.Debit,
		},
	}
	assert.Equal(t, want, st.Transactions)
	assert.Equal(t, models.Amount(0), st.BalanceDrift())
}

func TestComputeYear(t *testing.T) {
	tests := []struct {
		opMonth, endMonth, endYear int
		want                       int
	}{
		{12, 1, 2025, 2024},
		{11, 1, 2025, 2024},
		{10, 1, 2025, 2024},
		{8, 1, 2025, 2024},
		{7, 1, 2025, 2025},
		{6, 12, 2025, 2025},
		{1, 2, 2025, 2025},
		{2, 2, 2025, 2025},
		{3, 2, 2025, 2025},
		{12, 2, 2025, 2024},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d-%d", tt.opMonth, tt.endMonth, tt.endYear), func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeYear(tt.opMonth, tt.endMonth, tt.endYear))
		})
	}

	for m := 1; m <= 12; m++ {
		assert.Equal(t, 2030, ComputeYear(m, m, 2030), "same month %d", m)
	}
}

func TestResolveDate(t *testing.T) {
	window := models.DateWindow{
		Start: models.MustDate(2024, time.December, 14),
		End:   models.MustDate(2025, time.January, 13),
	}

	tests := []struct {
		in      string
		strict  bool
		want    models.Date
		wantErr bool
	}{
		{in: "16.12", want: models.MustDate(2024, time.December, 16)},
		{in: "03.01", want: models.MustDate(2025, time.January, 3)},
		{in: "15.11", want: models.MustDate(2024, time.November, 15)},
		{in: "15.03", want: models.MustDate(2025, time.March, 15)},
		{in: "15.11", strict: true, wantErr: true},
		{in: "32.01", wantErr: true},
		{in: "12.13", wantErr: true},
		{in: "1201", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/strict=%v", tt.in, tt.strict), func(t *testing.T) {
			got, err := resolveDate(tt.in, window, tt.strict)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueDateUsesWindow(t *testing.T) {
	p := newBNP(t)
	window := models.DateWindow{
		Start: models.MustDate(2024, time.December, 14),
		End:   models.MustDate(2025, time.January, 13),
	}

	got, err := p.scanTransactions("15.01 20.07 12,00 CB DECATHLON", window)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.MustDate(2025, time.January, 15), got[0].Date)
	assert.Equal(t, models.MustDate(2025, time.July, 20), got[0].ValueDate)

	got, err = p.scanTransactions("02.01 30.12 8,00 CB PHARMACIE", window)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.MustDate(2024, time.December, 30), got[0].ValueDate)
}

func TestParseFoldsNonBreakingSpaces(t *testing.T) {
	p := newBNP(t)
	text := strings.NewReplacer(
		"16.12 16.12 45,90 CB", "16.12\u00a016.12\u00a045,90 CB",
		"31.12 02.01 300,00", "31.12\u202f02.01\u00a0300,00",
		"TOTAL DES OPERATIONS 347,40 1 200,00", "TOTAL DES OPERATIONS\u00a0347,40\u00a01\u202f200,00",
	).Replace(sampleStatement)

	st, err := p.Parse(text)
	require.NoError(t, err)
	require.Len(t, st.Transactions, 4)
	assert.Equal(t, "CB CARREFOUR MARKET 14/12", st.Transactions[0].Description)
	assert.Equal(t, models.Amount(30000), st.Transactions[3].Amount)
	assert.Equal(t, models.DeclaredTotals{Debit: 34740, Credit: 120000}, st.Totals)
}

func TestExtractWindow(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    models.DateWindow
		wantErr error
	}{
		{
			name: "accented months",
			text: "RELEVE\ndu 3 février 2025 au 2 mars 2025\n",
			want: models.DateWindow{Start: models.MustDate(2025, time.February, 3), End: models.MustDate(2025, time.March, 2)},
		},
		{
			name: "unaccented upper case",
			text: "du 1er FEVRIER 2024 au 29 fevrier 2024",
			want: models.DateWindow{Start: models.MustDate(2024, time.February, 1), End: models.MustDate(2024, time.February, 29)},
		},
		{
			name: "august spelled with circumflex",
			text: "du  15 août 2023   au 14 septembre 2023",
			want: models.DateWindow{Start: models.MustDate(2023, time.August, 15), End: models.MustDate(2023, time.September, 14)},
		},
		{name: "missing", text: "SOLDE CREDITEUR AU 13.12.2024 1 000,00", wantErr: ErrHeaderNotFound},
		{name: "unknown month", text: "du 1 brumaire 2024 au 30 brumaire 2024", wantErr: ErrHeaderNotFound},
		{name: "impossible day", text: "du 30 février 2025 au 29 mars 2025", wantErr: ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractWindow(tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBalancesFirstAndLast(t *testing.T) {
	p := newBNP(t)
	text := `SOLDE DEBITEUR AU 01.03.2025 12,00
SOLDE CREDITEUR AU 15.03.2025 400,00
SOLDE CREDITEUR AU 31.03.2025 2 500,10`

	opening, closing, err := p.extractBalances(text)
	require.NoError(t, err)
	assert.Equal(t, models.Debit, opening.Polarity)
	assert.Equal(t, models.Amount(1200), opening.Amount)
	assert.Equal(t, models.Credit, closing.Polarity)
	assert.Equal(t, models.Amount(250010), closing.Amount)
	assert.Equal(t, models.MustDate(2025, time.March, 31), closing.Date)
}

func TestParseErrors(t *testing.T) {
	p := newBNP(t)

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{
			name:    "no header",
			text:    strings.Replace(sampleStatement, "du 14 décembre 2024 au 13 janvier 2025", "", 1),
			wantErr: ErrHeaderNotFound,
		},
		{
			name: "no balance",
			text: strings.NewReplacer(
				"SOLDE CREDITEUR AU 13.12.2024 1 000,00", "",
				"SOLDE CREDITEUR AU 13.01.2025 1 852,60", "",
			).Replace(sampleStatement),
			wantErr: ErrBalanceNotFound,
		},
		{
			name:    "no totals",
			text:    strings.Replace(sampleStatement, "TOTAL DES OPERATIONS 347,40 1 200,00", "", 1),
			wantErr: ErrTotalsNotFound,
		},
		{
			name:    "debit mismatch",
			text:    strings.Replace(sampleStatement, "TOTAL DES OPERATIONS 347,40", "TOTAL DES OPERATIONS 347,41", 1),
			wantErr: ErrDebitMismatch,
		},
		{
			name:    "credit mismatch",
			text:    strings.Replace(sampleStatement, "347,40 1 200,00", "347,40 1 100,00", 1),
			wantErr: ErrCreditMismatch,
		},
		{
			name:    "impossible operation date",
			text:    strings.Replace(sampleStatement, "16.12 16.12 45,90", "32.12 16.12 45,90", 1),
			wantErr: ErrInvalidDate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := p.ParseDocument("doc.pdf", tt.text)
			assert.Nil(t, st)
			require.ErrorIs(t, err, tt.wantErr)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "doc.pdf", pe.Document)
			assert.Contains(t, err.Error(), "doc.pdf")
		})
	}
}

func TestMismatchCarriesAmounts(t *testing.T) {
	p := newBNP(t)
	text := strings.Replace(sampleStatement, "TOTAL DES OPERATIONS 347,40", "TOTAL DES OPERATIONS 350,00", 1)

	_, err := p.ParseDocument("jan.pdf", text)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindDebitMismatch, pe.Kind)
	assert.Equal(t, models.Amount(35000), pe.Declared)
	assert.Equal(t, models.Amount(34740), pe.Computed)
	assert.Equal(t, "jan.pdf: debit total mismatch: declared 350.00, computed 347.40", err.Error())
}

func TestInvalidDateReportsLine(t *testing.T) {
	p := newBNP(t)
	text := strings.Replace(sampleStatement, "03.01 03.01 1,50*", "03.13 03.01 1,50*", 1)

	_, err := p.Parse(text)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindInvalidDate, pe.Kind)
	assert.Equal(t, 13, pe.Line)
	assert.Equal(t, "03.13 03.01 1,50* COMMISSIONS", pe.Text)
}

func TestScanStopsAtMarkers(t *testing.T) {
	p := newBNP(t)
	window := models.DateWindow{
		Start: models.MustDate(2025, time.March, 1),
		End:   models.MustDate(2025, time.March, 31),
	}
	text := `unrelated preamble 12,00
05.03 05.03 10,00

ACHAT CB BOULANGERIE

SCPT 0042 footer text
stray line that is not a transaction
06.03 06.03 15,00 CB PRIMEUR
50400 0001 00012345678 page footer
stray line that is not a transaction
06.03 06.03 20,00 REMBOURST ASSURANCE
RIB : FR76 3000 4000
07.03 07.03 30,00 CB LIBRAIRIE
SOLDE CREDITEUR AU 31.03.2025 100,00`

	got, err := p.scanTransactions(text, window)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "ACHAT CB BOULANGERIE", got[0].Description)
	assert.Equal(t, models.Debit, got[0].Polarity)
	assert.Equal(t, "CB PRIMEUR", got[1].Description)
	assert.Equal(t, "REMBOURST ASSURANCE", got[2].Description)
	assert.Equal(t, models.Credit, got[2].Polarity)
	assert.Equal(t, "CB LIBRAIRIE", got[3].Description)
}

func TestInjectedTemplate(t *testing.T) {
	tpl := BNP()
	tpl.Name = "custom"
	tpl.StopMarkers = []Marker{{Text: "-- page --"}, {Text: "TOTAL DES OPERATIONS"}}
	tpl.CreditKeywords = []string{"AVOIR"}

	p, err := New(tpl)
	require.NoError(t, err)

	text := `du 1 mars 2025 au 31 mars 2025
SOLDE CREDITEUR AU 28.02.2025 100,00
02.03 02.03 5,00 CB KIOSQUE
-- page --
03.03 03.03 8,00 AVOIR MAGASIN
SUITE AVOIR
TOTAL DES OPERATIONS 5,00 8,00
SOLDE CREDITEUR AU 31.03.2025 103,00`

	st, err := p.Parse(text)
	require.NoError(t, err)
	require.Len(t, st.Transactions, 2)
	assert.Equal(t, "CB KIOSQUE", st.Transactions[0].Description)
	assert.Equal(t, "AVOIR MAGASIN SUITE AVOIR", st.Transactions[1].Description)
	assert.Equal(t, models.Credit, st.Transactions[1].Polarity)
}

func TestNewRejectsIncompleteTemplate(t *testing.T) {
	_, err := New(Template{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance_phrase")
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	tpl, err := r.Detect(sampleStatement)
	require.NoError(t, err)
	assert.Equal(t, "bnp", tpl.Name)

	_, err = r.Detect("Some other bank\nStatement")
	assert.Error(t, err)

	tpl, err = r.Lookup("BNP")
	require.NoError(t, err)
	assert.Equal(t, "bnp", tpl.Name)

	_, err = r.Lookup("lcl")
	assert.ErrorContains(t, err, "known: bnp")

	assert.Error(t, r.Add(Template{Name: "broken"}))
	other := BNP()
	other.Name = "bnp-pro"
	other.Detect = []string{"BNP PARIBAS ENTREPRISES"}
	require.NoError(t, r.Add(other))
	assert.Equal(t, []string{"bnp", "bnp-pro"}, r.Names())
}

// frenchAmount renders cents the way the statements print them.
func frenchAmount(a models.Amount) string {
	if a < 0 {
		a = -a
	}
	s := strconv.FormatInt(int64(a)/100, 10)
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	return fmt.Sprintf("%s,%02d", strings.Join(groups, " "), int64(a)%100)
}

func balanceLine(date string, b models.Amount) string {
	word := "CREDITEUR"
	if b < 0 {
		word = "DEBITEUR"
	}
	return fmt.Sprintf("SOLDE %s AU %s %s", word, date, frenchAmount(b))
}

// synthesize renders a random well-formed March 2025 statement and returns
// it with the statement the parser is expected to produce.
func synthesize(rng *rand.Rand) (string, *models.Statement) {
	window := models.DateWindow{
		Start: models.MustDate(2025, time.March, 1),
		End:   models.MustDate(2025, time.March, 31),
	}
	opening := models.Amount(rng.Int63n(1_000_000))
	st := &models.Statement{
		Window:    window,
		PeriodEnd: window.End,
		Opening:   models.Balance{Polarity: models.Credit, Amount: opening, Date: models.MustDate(2025, time.February, 28)},
	}

	var lines []string
	lines = append(lines, "BNP PARIBAS", "du 1 mars 2025 au 31 mars 2025", balanceLine("28.02.2025", opening))
	n := 1 + rng.Intn(25)
	for i := 0; i < n; i++ {
		day := 1 + rng.Intn(31)
		amount := models.Amount(1 + rng.Int63n(500_000))
		txn := models.Transaction{
			Date:      models.MustDate(2025, time.March, day),
			ValueDate: models.MustDate(2025, time.March, day),
			Amount:    amount,
			Polarity:  models.Debit,
		}
		if rng.Intn(3) == 0 {
			txn.Polarity = models.Credit
			txn.Description = fmt.Sprintf("VIR SEPA RECU /DE EMETTEUR %d", i)
		} else {
			txn.Description = fmt.Sprintf("CB MAGASIN %d", i)
		}
		prefix := fmt.Sprintf("%02d.03 %02d.03 %s", day, day, frenchAmount(amount))
		if i%2 == 0 {
			lines = append(lines, prefix+" "+txn.Description)
		} else {
			lines = append(lines, prefix, txn.Description)
		}
		st.Transactions = append(st.Transactions, txn)
	}

	st.Totals = models.DeclaredTotals{Debit: st.Sum(models.Debit), Credit: st.Sum(models.Credit)}
	closing := opening + st.Totals.Credit - st.Totals.Debit
	st.Closing = models.Balance{Polarity: models.Credit, Amount: closing, Date: window.End}
	if closing < 0 {
		st.Closing = models.Balance{Polarity: models.Debit, Amount: -closing, Date: window.End}
	}
	lines = append(lines,
		fmt.Sprintf("TOTAL DES OPERATIONS %s %s", frenchAmount(st.Totals.Debit), frenchAmount(st.Totals.Credit)),
		balanceLine("31.03.2025", closing),
	)
	return strings.Join(lines, "\n"), st
}

func TestReconciliationOnSyntheticStatements(t *testing.T) {
	p := newBNP(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		text, want := synthesize(rng)
		got, err := p.Parse(text)
		require.NoError(t, err, "statement %d:\n%s", i, text)
		assert.Equal(t, want, got, "statement %d", i)
		assert.Equal(t, models.Amount(0), got.BalanceDrift())
	}
}
