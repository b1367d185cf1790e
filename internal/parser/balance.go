package parser

import (
	"fmt"
	"time"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// amountPattern matches French-formatted amounts: digit groups separated by
// spaces (regular, non-breaking or narrow non-breaking) and a decimal comma.
const amountPattern = `[\d \x{00A0}\x{202F}]*\d,\d{2}`

// extractBalances returns the first and last balance lines of the text.
func (p *Parser) extractBalances(text string) (opening, closing models.Balance, err error) {
	all := p.matchers.balance.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return opening, closing, &ParseError{Kind: KindBalanceNotFound}
	}
	opening, err = p.balance(all[0])
	if err != nil {
		return opening, closing, err
	}
	closing, err = p.balance(all[len(all)-1])
	return opening, closing, err
}

func (p *Parser) balance(m []string) (models.Balance, error) {
	b := models.Balance{Polarity: models.Debit}
	if m[1] == p.template.CreditWord {
		b.Polarity = models.Credit
	}

	amount, err := models.ParseAmount(m[3])
	if err != nil {
		return b, &ParseError{Kind: KindInvalidAmount, Text: m[0], Err: err}
	}
	b.Amount = amount

	date, err := parseFullDate(m[2])
	if err != nil {
		return b, &ParseError{Kind: KindInvalidDate, Text: m[0], Err: err}
	}
	b.Date = date
	return b, nil
}

// extractTotals reads the bank's declared debit and credit sums.
func (p *Parser) extractTotals(text string) (models.DeclaredTotals, error) {
	m := p.matchers.totals.FindStringSubmatch(text)
	if m == nil {
		return models.DeclaredTotals{}, &ParseError{Kind: KindTotalsNotFound}
	}
	debit, err := models.ParseAmount(m[1])
	if err != nil {
		return models.DeclaredTotals{}, &ParseError{Kind: KindInvalidAmount, Text: m[0], Err: err}
	}
	credit, err := models.ParseAmount(m[2])
	if err != nil {
		return models.DeclaredTotals{}, &ParseError{Kind: KindInvalidAmount, Text: m[0], Err: err}
	}
	return models.DeclaredTotals{Debit: debit, Credit: credit}, nil
}

// parseFullDate reads "dd.mm.yyyy".
func parseFullDate(s string) (models.Date, error) {
	var d, m, y int
	if _, err := fmt.Sscanf(s, "%d.%d.%d", &d, &m, &y); err != nil {
		return models.Date{}, fmt.Errorf("malformed date %q", s)
	}
	return models.NewDate(y, time.Month(m), d)
}
