package ventilation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

type compiledCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// Engine assigns spending transactions to the categories of one spec.
// Patterns are compiled once; an Engine is safe for concurrent use.
type Engine struct {
	spec       models.CategorySpec
	categories []compiledCategory
	log        zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for run summaries.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Compile validates the spec and compiles its patterns. Patterns are
// case-sensitive regular expressions searched anywhere in the description.
func Compile(spec models.CategorySpec, opts ...Option) (*Engine, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("category spec %q: %w", spec.Name, err)
	}

	e := &Engine{spec: spec, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}

	var errs []error
	for _, c := range spec.Categories {
		cc := compiledCategory{name: c.Name}
		for _, p := range c.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				errs = append(errs, &PatternError{Category: c.Name, Pattern: p, Err: err})
				continue
			}
			cc.patterns = append(cc.patterns, re)
		}
		e.categories = append(e.categories, cc)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return e, nil
}

// Classify returns every (category, pattern) pair matching the description,
// in spec order. Evaluation never stops at the first hit.
func (e *Engine) Classify(description string) []Match {
	var matches []Match
	for _, c := range e.categories {
		for _, re := range c.patterns {
			if re.MatchString(description) {
				matches = append(matches, Match{Category: c.name, Pattern: re.String()})
			}
		}
	}
	return matches
}

// Ventilate assigns every debit transaction of the statements to exactly one
// category or to the unassigned bucket, then checks that the result accounts
// for the declared debit totals. The result is all-or-nothing.
func (e *Engine) Ventilate(statements []models.Statement) (*models.VentilationResult, error) {
	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	result := &models.VentilationResult{
		Spec:         e.spec,
		Totals:       make(map[string]models.Amount),
		Transactions: make(map[string][]models.Transaction),
	}

	var expected models.Amount
	for i := range statements {
		st := &statements[i]
		expected += st.Totals.Debit

		for _, txn := range st.Debits() {
			matches := e.Classify(txn.Description)
			categories := distinctCategories(matches)

			switch len(categories) {
			case 0:
				result.Unassigned += txn.Amount
				result.UnassignedTransactions = append(result.UnassignedTransactions, txn)
			case 1:
				name := categories[0]
				result.Totals[name] += txn.Amount
				result.Transactions[name] = append(result.Transactions[name], txn)
			default:
				return nil, &AmbiguousError{Document: st.Name(), Transaction: txn, Matches: matches}
			}
		}
	}

	if actual := result.Assigned() + result.Unassigned; actual != expected {
		return nil, &SumMismatchError{Expected: expected, Actual: actual}
	}

	e.log.Info().
		Str("spec", e.spec.Name).
		Int("statements", len(statements)).
		Int("categories", len(result.Totals)).
		Stringer("assigned", result.Assigned()).
		Stringer("unassigned", result.Unassigned).
		Int("unassigned_count", len(result.UnassignedTransactions)).
		Msg("ventilation complete")

	return result, nil
}

// Ventilate compiles spec and runs it over statements.
func Ventilate(spec models.CategorySpec, statements []models.Statement, opts ...Option) (*models.VentilationResult, error) {
	e, err := Compile(spec, opts...)
	if err != nil {
		return nil, err
	}
	return e.Ventilate(statements)
}

func distinctCategories(matches []Match) []string {
	var names []string
	for _, m := range matches {
		if len(names) == 0 || names[len(names)-1] != m.Category {
			names = append(names, m.Category)
		}
	}
	return names
}
