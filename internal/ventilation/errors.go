package ventilation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// ErrNoStatements is returned when a run is given no statements.
var ErrNoStatements = errors.New("no statements to ventilate")

// Match is one (category, pattern) pair that matched a description.
type Match struct {
	Category string `json:"category"`
	Pattern  string `json:"pattern"`
}

// AmbiguousError reports a spending transaction claimed by more than one
// category. Matches lists every pair that matched.
type AmbiguousError struct {
	Document    string
	Transaction models.Transaction
	Matches     []Match
}

func (e *AmbiguousError) Error() string {
	pairs := make([]string, len(e.Matches))
	for i, m := range e.Matches {
		pairs[i] = fmt.Sprintf("%s (%q)", m.Category, m.Pattern)
	}
	return fmt.Sprintf("%s: transaction %s %q of %s matches several categories: %s",
		e.Document, e.Transaction.Date, e.Transaction.Description, e.Transaction.Amount,
		strings.Join(pairs, ", "))
}

// Categories returns the distinct matched category names in match order.
func (e *AmbiguousError) Categories() []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range e.Matches {
		if !seen[m.Category] {
			seen[m.Category] = true
			names = append(names, m.Category)
		}
	}
	return names
}

// SumMismatchError reports that assigned plus unassigned spending differs
// from the debit totals declared on the statements.
type SumMismatchError struct {
	Expected models.Amount
	Actual   models.Amount
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("ventilated spending does not add up: expected %s (declared debit totals), got %s",
		e.Expected, e.Actual)
}

// PatternError reports a category pattern that is not a valid expression.
type PatternError struct {
	Category string
	Pattern  string
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("category %q: invalid pattern %q: %v", e.Category, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }
