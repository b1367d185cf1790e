package parser

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// ErrorKind classifies why a statement could not be parsed.
type ErrorKind string

const (
	KindHeaderNotFound  ErrorKind = "HeaderNotFound"
	KindInvalidDate     ErrorKind = "InvalidDate"
	KindInvalidAmount   ErrorKind = "InvalidAmount"
	KindBalanceNotFound ErrorKind = "BalanceNotFound"
	KindTotalsNotFound  ErrorKind = "TotalsNotFound"
	KindDebitMismatch   ErrorKind = "DebitMismatch"
	KindCreditMismatch  ErrorKind = "CreditMismatch"
)

// Sentinels for errors.Is; a *ParseError matches the sentinel of its kind.
var (
	ErrHeaderNotFound  = &ParseError{Kind: KindHeaderNotFound}
	ErrInvalidDate     = &ParseError{Kind: KindInvalidDate}
	ErrInvalidAmount   = &ParseError{Kind: KindInvalidAmount}
	ErrBalanceNotFound = &ParseError{Kind: KindBalanceNotFound}
	ErrTotalsNotFound  = &ParseError{Kind: KindTotalsNotFound}
	ErrDebitMismatch   = &ParseError{Kind: KindDebitMismatch}
	ErrCreditMismatch  = &ParseError{Kind: KindCreditMismatch}
)

// ParseError reports a fatal problem with one document. Line is 1-based and
// zero when the problem is not tied to a line.
type ParseError struct {
	Kind     ErrorKind
	Document string
	Line     int
	Text     string
	Declared models.Amount
	Computed models.Amount
	Err      error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Document != "" {
		fmt.Fprintf(&b, "%s: ", e.Document)
	}
	switch e.Kind {
	case KindHeaderNotFound:
		b.WriteString("statement period header not found")
	case KindInvalidDate:
		b.WriteString("invalid date")
	case KindInvalidAmount:
		b.WriteString("invalid amount")
	case KindBalanceNotFound:
		b.WriteString("no balance line found")
	case KindTotalsNotFound:
		b.WriteString("declared totals line not found")
	case KindDebitMismatch:
		fmt.Fprintf(&b, "debit total mismatch: declared %s, computed %s", e.Declared, e.Computed)
	case KindCreditMismatch:
		fmt.Fprintf(&b, "credit total mismatch: declared %s, computed %s", e.Declared, e.Computed)
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Text != "" {
		fmt.Fprintf(&b, " (%q)", e.Text)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}
