// Package batch extracts and parses many statement documents in parallel.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-ventilation/internal/logger"
	"github.com/insightdelivered/statement-ventilation/internal/models"
	"github.com/insightdelivered/statement-ventilation/internal/parser"
)

// Source returns the text of a document. *extractor.Extractor implements it.
type Source interface {
	Supports(path string) bool
	Extract(ctx context.Context, path string) (string, error)
}

// Failure is a document that could not be turned into a statement.
type Failure struct {
	Path string
	Err  error
}

// Report is the outcome of a batch. Statements are sorted by period end.
type Report struct {
	Statements []models.Statement
	Failures   []Failure
}

// Err joins the failures into one error, or returns nil.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	if len(r.Failures) == 1 {
		return r.Failures[0].Err
	}
	return fmt.Errorf("%d documents failed, first: %w", len(r.Failures), r.Failures[0].Err)
}

// Runner parses documents with a bounded number of workers.
type Runner struct {
	source   Source
	registry *parser.Registry
	forced   string
	parsers  map[string]*parser.Parser
	workers  int
	popts    []parser.Option
	progress func(path string, err error)
	log      zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets how many documents are processed at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTemplate forces a template instead of detecting it per document.
func WithTemplate(name string) Option {
	return func(r *Runner) { r.forced = name }
}

// WithParserOptions passes options to every parser the runner builds.
func WithParserOptions(opts ...parser.Option) Option {
	return func(r *Runner) { r.popts = append(r.popts, opts...) }
}

// WithProgress registers a callback invoked once per finished document.
func WithProgress(fn func(path string, err error)) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// New builds one parser per registered template.
func New(source Source, registry *parser.Registry, opts ...Option) (*Runner, error) {
	r := &Runner{
		source:   source,
		registry: registry,
		parsers:  make(map[string]*parser.Parser),
		workers:  4,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.forced != "" {
		if _, err := registry.Lookup(r.forced); err != nil {
			return nil, err
		}
	}
	for _, name := range registry.Names() {
		t, err := registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		p, err := parser.New(t, append([]parser.Option{parser.WithLogger(r.log)}, r.popts...)...)
		if err != nil {
			return nil, err
		}
		r.parsers[t.Name] = p
	}
	return r, nil
}

// Expand replaces directories by the supported documents they contain.
// Explicit file paths are kept as given.
func (r *Runner) Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input not found: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && r.source.Supports(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return out, nil
}

// Run parses every document. A failing document does not stop the others;
// only context cancellation does.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	files, err := r.Expand(paths)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		report = &Report{}
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st, err := r.parseFile(ctx, path)

			mu.Lock()
			if err != nil {
				report.Failures = append(report.Failures, Failure{Path: path, Err: err})
			} else {
				report.Statements = append(report.Statements, *st)
			}
			mu.Unlock()

			log := logger.WithFields(r.log, map[string]interface{}{"path": path})
			if err != nil {
				log.Error().Err(err).Msg("document failed")
			} else {
				log.Info().
					Int("transactions", len(st.Transactions)).
					Str("period_end", st.PeriodEnd.String()).
					Msg("document parsed")
			}
			if r.progress != nil {
				r.progress(path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(report.Statements, func(i, j int) bool {
		a, b := report.Statements[i], report.Statements[j]
		if a.PeriodEnd != b.PeriodEnd {
			return a.PeriodEnd.Before(b.PeriodEnd)
		}
		return a.Source < b.Source
	})
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Path < report.Failures[j].Path
	})
	return report, nil
}

func (r *Runner) parseFile(ctx context.Context, path string) (*models.Statement, error) {
	text, err := r.source.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	var t parser.Template
	if r.forced != "" {
		t, err = r.registry.Lookup(r.forced)
	} else {
		t, err = r.registry.Detect(text)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.log.Debug().Str("path", path).Str("template", t.Name).Msg("template selected")

	return r.parsers[t.Name].ParseDocument(filepath.Base(path), text)
}
