package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// Transaction start lines: operation date, value date, amount, then
// optionally the first description line.
var (
	txnInlinePattern = regexp.MustCompile(
		`^(\d{2}\.\d{2})\s+(\d{2}\.\d{2})\s+(` + amountPattern + `)\s*([A-Z*].*)$`,
	)
	txnBarePattern = regexp.MustCompile(
		`^(\d{2}\.\d{2})\s+(\d{2}\.\d{2})\s+(` + amountPattern + `)$`,
	)
)

// startLine is a matched transaction start.
type startLine struct {
	date, valueDate, amount, description string
}

func matchStart(line string) (startLine, bool) {
	if m := txnInlinePattern.FindStringSubmatch(line); m != nil {
		return startLine{date: m[1], valueDate: m[2], amount: m[3], description: strings.TrimSpace(m[4])}, true
	}
	if m := txnBarePattern.FindStringSubmatch(line); m != nil {
		return startLine{date: m[1], valueDate: m[2], amount: m[3]}, true
	}
	return startLine{}, false
}

// scanTransactions walks the text line by line. A start line opens a
// transaction; following non-blank lines extend its description until a
// stop line (another start line or a template marker). Anything else is
// skipped.
func (p *Parser) scanTransactions(text string, window models.DateWindow) ([]models.Transaction, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var transactions []models.Transaction

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		start, ok := matchStart(line)
		if !ok {
			continue
		}

		parts := []string{}
		if start.description != "" {
			parts = append(parts, start.description)
		}
		j := i + 1
		for ; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				continue
			}
			if _, isStart := matchStart(next); isStart || p.template.isStop(next) {
				break
			}
			parts = append(parts, next)
		}

		txn, err := p.buildTransaction(start, strings.Join(parts, " "), window)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Line = i + 1
				pe.Text = line
			}
			return nil, err
		}
		transactions = append(transactions, txn)
		i = j - 1
	}

	return transactions, nil
}

func (p *Parser) buildTransaction(start startLine, description string, window models.DateWindow) (models.Transaction, error) {
	date, err := resolveDate(start.date, window, p.template.StrictWindow)
	if err != nil {
		return models.Transaction{}, &ParseError{Kind: KindInvalidDate, Err: err}
	}
	valueDate, err := resolveDate(start.valueDate, window, p.template.StrictWindow)
	if err != nil {
		return models.Transaction{}, &ParseError{Kind: KindInvalidDate, Err: err}
	}
	amount, err := models.ParseAmount(start.amount)
	if err != nil {
		return models.Transaction{}, &ParseError{Kind: KindInvalidAmount, Err: err}
	}

	polarity := models.Debit
	if p.template.isCredit(description) {
		polarity = models.Credit
	}

	return models.Transaction{
		Date:        date,
		ValueDate:   valueDate,
		Description: description,
		Amount:      amount,
		Polarity:    polarity,
	}, nil
}
