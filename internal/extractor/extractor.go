package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Strategy turns one document into plain text.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractionError reports that no strategy produced readable text.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrUnsupported is returned for file types no strategy handles.
var ErrUnsupported = errors.New("unsupported document type")

// Extractor picks strategies by file extension and returns the text of the
// first one that yields a readable statement.
type Extractor struct {
	strategies map[string][]Strategy
	log        zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report strategy fallbacks.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// WithOCR appends Tesseract OCR to the PDF chain for scanned statements.
func WithOCR(language string) Option {
	return func(e *Extractor) {
		e.strategies[".pdf"] = append(e.strategies[".pdf"], &OCRStrategy{Language: language})
	}
}

// WithStrategies replaces the chain used for an extension such as ".pdf".
func WithStrategies(ext string, strategies ...Strategy) Option {
	return func(e *Extractor) { e.strategies[strings.ToLower(ext)] = strategies }
}

// New returns an extractor for .txt and .pdf documents. PDFs are read with
// the Go PDF library first, then by decoding the content streams directly,
// then with pdftotext when it is installed.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		strategies: map[string][]Strategy{
			".txt": {TextFile{}},
			".pdf": {&LibraryStrategy{}, &RawStrategy{}, &PdftotextStrategy{}},
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether path has an extension the extractor handles.
func (e *Extractor) Supports(path string) bool {
	_, ok := e.strategies[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract returns the text of the document at path.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	chain, ok := e.strategies[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", &ExtractionError{Path: path, Err: ErrUnsupported}
	}
	if _, err := os.Stat(path); err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}

	var errs []error
	for _, s := range chain {
		if err := ctx.Err(); err != nil {
			return "", &ExtractionError{Path: path, Err: err}
		}
		text, err := s.Extract(ctx, path)
		if err != nil {
			e.log.Debug().Str("path", path).Str("strategy", s.Name()).Err(err).Msg("extraction strategy failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if !IsReadableText(text) {
			e.log.Debug().Str("path", path).Str("strategy", s.Name()).Msg("extracted text is not readable")
			errs = append(errs, fmt.Errorf("%s: text is not readable", s.Name()))
			continue
		}
		e.log.Debug().Str("path", path).Str("strategy", s.Name()).Int("chars", len(text)).Msg("text extracted")
		return text, nil
	}
	return "", &ExtractionError{Path: path, Err: errors.Join(errs...)}
}

// TextFile reads an already extracted UTF-8 text file.
type TextFile struct{}

func (TextFile) Name() string { return "text" }

func (TextFile) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8")
	}
	return string(data), nil
}

// statementWords appear in virtually every French bank statement. Text
// containing none of them is almost certainly mis-decoded.
var statementWords = []string{
	"solde", "releve", "relevé", "total", "operations", "opérations",
	"credit", "crédit", "debit", "débit", "compte", "date", "valeur",
	"virement", "prelevement", "prlv", "carte",
}

// textQuality is the share of letters, digits, punctuation and whitespace
// in the text. Control characters and private-use glyphs from broken font
// encodings count against it.
func textQuality(text string) float64 {
	total, readable := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			if !unicode.Is(unicode.Co, r) && r != utf8.RuneError {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// IsReadableText requires more than 50 characters, at least 90% readable
// characters, and one recognisable statement word.
func IsReadableText(text string) bool {
	if len(strings.TrimSpace(text)) <= 50 {
		return false
	}
	if textQuality(text) < 0.9 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range statementWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
