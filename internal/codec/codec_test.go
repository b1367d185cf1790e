package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

func sampleStatements() []models.Statement {
	return []models.Statement{{
		Source: "releve_2025_01.pdf",
		Window: models.DateWindow{
			Start: models.MustDate(2024, time.December, 14),
			End:   models.MustDate(2025, time.January, 13),
		},
		PeriodEnd: models.MustDate(2025, time.January, 13),
		Opening:   models.Balance{Polarity: models.Credit, Amount: 100000, Date: models.MustDate(2024, time.December, 13)},
		Closing:   models.Balance{Polarity: models.Credit, Amount: 185260, Date: models.MustDate(2025, time.January, 13)},
		Totals:    models.DeclaredTotals{Debit: 34740, Credit: 120000},
		Transactions: []models.Transaction{
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
				Description: "VIR SEPA RECU /DE ACME SA",
				Amount:      120000,
				Polarity:    models.Credit,
			},
		},
	}}
}

func sampleSpec() models.CategorySpec {
	return models.CategorySpec{Name: "budget 2025", Categories: []models.Category{
		{Name: "Courses", Patterns: []string{"CARREFOUR", "LIDL", `^CB (AUCHAN|LECLERC)`}},
		{Name: "Epargne", Patterns: []string{"VIR PERMANENT"}, Ignore: true},
		{Name: "Loyer", Patterns: []string{"PRLV SEPA LOYER"}},
	}}
}

func TestStatementsRoundTrip(t *testing.T) {
	for _, name := range []string{"releves.yml", "releves.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, sampleStatements()))

			got, err := LoadStatements(path)
			require.NoError(t, err)
			assert.Equal(t, sampleStatements(), got)
		})
	}
}

func TestStatementsRoundTripWithoutBalances(t *testing.T) {
	bare := []models.Statement{{
		PeriodEnd: models.MustDate(2025, time.March, 13),
		Totals:    models.DeclaredTotals{Debit: 5000},
		Transactions: []models.Transaction{{
			Date:        models.MustDate(2025, time.March, 5),
			ValueDate:   models.MustDate(2025, time.March, 5),
			Description: "CB CARREFOUR",
			Amount:      5000,
			Polarity:    models.Debit,
		}},
	}}
	for _, f := range []Format{JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, f, bare))

			var got []models.Statement
			require.NoError(t, Decode(&buf, f, &got))
			assert.Equal(t, bare, got)
			assert.Equal(t, models.Polarity(""), got[0].Opening.Polarity)
		})
	}
}

func TestSpecRoundTripKeepsPatternOrder(t *testing.T) {
	for _, name := range []string{"spec.yaml", "spec.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, sampleSpec()))

			got, err := LoadSpec(path)
			require.NoError(t, err)
			assert.Equal(t, sampleSpec(), got)
		})
	}
}

func TestResultRoundTrip(t *testing.T) {
	st := sampleStatements()[0]
	res := &models.VentilationResult{
		Spec:                   sampleSpec(),
		Totals:                 map[string]models.Amount{"Courses": 4590},
		Transactions:           map[string][]models.Transaction{"Courses": {st.Transactions[0]}},
		Unassigned:             0,
		UnassignedTransactions: []models.Transaction{},
	}
	path := filepath.Join(t.TempDir(), "ventilation.yml")
	require.NoError(t, Save(path, res))

	got, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestYAMLLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, YAML, sampleStatements()))

	out := buf.String()
	assert.Contains(t, out, "period_end: 2025-01-13")
	assert.Contains(t, out, "amount: 45.90")
	assert.Contains(t, out, "polarity: debit")
	assert.Contains(t, out, "debit: 347.40")
}

func TestLoadSpecFromHandWrittenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: perso
categories:
  - name: Cirque
    patterns: [CIRQUE]
  - name: Restaurant
    patterns:
      - RESTAURANT
      - 'REST\.'
  - name: Virements
    patterns: ["VIR PERMANENT"]
    ignore: true
`), 0o644))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	require.Len(t, spec.Categories, 3)
	assert.Equal(t, []string{"RESTAURANT", `REST\.`}, spec.Categories[1].Patterns)
	assert.True(t, spec.Categories[2].Ignore)
}

func TestLoadRejectsInvalidData(t *testing.T) {
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yml")
	require.NoError(t, os.WriteFile(dup, []byte("categories:\n  - name: A\n  - name: A\n"), 0o644))
	_, err := LoadSpec(dup)
	assert.ErrorContains(t, err, "defined twice")

	badPolarity := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(badPolarity, []byte("- transactions:\n    - polarity: sideways\n"), 0o644))
	_, err = LoadStatements(badPolarity)
	assert.ErrorContains(t, err, "unknown polarity")

	unknown := filepath.Join(dir, "unknown.yml")
	require.NoError(t, os.WriteFile(unknown, []byte("name: x\ncolour: red\n"), 0o644))
	_, err = LoadSpec(unknown)
	assert.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, JSON, FormatFor("a/b.JSON"))
	assert.Equal(t, YAML, FormatFor("a/b.yml"))
	assert.Equal(t, YAML, FormatFor("a/b"))
}
