package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// Observer is notified of every parse attempt.
type Observer interface {
	ObserveParse(template string, st *models.Statement, err error, elapsed time.Duration)
}

// Parser turns the extracted text of one statement into a reconciled
// models.Statement. A Parser holds no per-document state and may be shared
// between goroutines.
type Parser struct {
	template Template
	matchers *matchers
	log      zerolog.Logger
	observer Observer
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Parser) { p.log = log }
}

// WithObserver registers a parse observer (metrics).
func WithObserver(o Observer) Option {
	return func(p *Parser) { p.observer = o }
}

// New returns a parser for the given template.
func New(t Template, opts ...Option) (*Parser, error) {
	m, err := t.compile()
	if err != nil {
		return nil, err
	}
	p := &Parser{template: t, matchers: m, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse parses a statement with no document name attached to errors.
func (p *Parser) Parse(text string) (*models.Statement, error) {
	return p.ParseDocument("", text)
}

// ParseDocument parses the text of the document identified by source. It
// returns either a statement whose per-polarity sums equal the declared
// totals or a *ParseError.
func (p *Parser) ParseDocument(source, text string) (*models.Statement, error) {
	began := time.Now()
	st, err := p.parse(text)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Document = source
		}
		st = nil
	} else {
		st.Source = source
		if drift := st.BalanceDrift(); drift != 0 {
			p.log.Warn().
				Str("document", st.Name()).
				Stringer("opening", st.Opening.Signed()).
				Stringer("closing", st.Closing.Signed()).
				Stringer("drift", drift).
				Msg("printed balances do not agree with the transactions")
		}
	}
	if p.observer != nil {
		p.observer.ObserveParse(p.template.Name, st, err, time.Since(began))
	}
	return st, err
}

// spaceFolder maps the non-breaking spaces that PDF extraction leaves
// between columns to plain spaces, which the line patterns expect.
var spaceFolder = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

func (p *Parser) parse(text string) (*models.Statement, error) {
	text = spaceFolder.Replace(text)
	window, err := extractWindow(text)
	if err != nil {
		return nil, err
	}
	opening, closing, err := p.extractBalances(text)
	if err != nil {
		return nil, err
	}
	totals, err := p.extractTotals(text)
	if err != nil {
		return nil, err
	}
	transactions, err := p.scanTransactions(text, window)
	if err != nil {
		return nil, err
	}

	st := &models.Statement{
		Window:       window,
		PeriodEnd:    window.End,
		Opening:      opening,
		Closing:      closing,
		Totals:       totals,
		Transactions: transactions,
	}
	if err := Reconcile(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Reconcile compares the per-polarity sums of the transactions with the
// totals declared by the bank. Amounts are in cents so the comparison is
// exact.
func Reconcile(st *models.Statement) error {
	if computed := st.Sum(models.Debit); computed != st.Totals.Debit {
		return &ParseError{Kind: KindDebitMismatch, Document: st.Source, Declared: st.Totals.Debit, Computed: computed}
	}
	if computed := st.Sum(models.Credit); computed != st.Totals.Credit {
		return &ParseError{Kind: KindCreditMismatch, Document: st.Source, Declared: st.Totals.Credit, Computed: computed}
	}
	return nil
}
