package extractor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementText = `BNP PARIBAS RELEVE DE COMPTE CHEQUES
du 14 décembre 2024 au 13 janvier 2025
SOLDE CREDITEUR AU 13.12.2024 1 000,00
16.12 16.12 45,90 CB CARREFOUR MARKET 14/12
TOTAL DES OPERATIONS 45,90 0,00`

type fakeStrategy struct {
	name string
	text string
	err  error
	hits int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Extract(context.Context, string) (string, error) {
	f.hits++
	return f.text, f.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractTextFile(t *testing.T) {
	path := writeFile(t, "releve.txt", statementText)

	got, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, statementText, got)
}

func TestExtractUnsupported(t *testing.T) {
	path := writeFile(t, "releve.docx", statementText)

	_, err := New().Extract(context.Background(), path)
	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, path, ee.Path)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, New().Supports(path))
	assert.True(t, New().Supports("x.PDF"))
}

func TestExtractMissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), "/nonexistent/releve.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractFallsBackToNextStrategy(t *testing.T) {
	garbage := &fakeStrategy{name: "garbage", text: strings.Repeat("\x01\x02\x03", 40)}
	broken := &fakeStrategy{name: "broken", err: errors.New("boom")}
	good := &fakeStrategy{name: "good", text: statementText}
	never := &fakeStrategy{name: "never", text: statementText}

	e := New(WithStrategies(".pdf", garbage, broken, good, never))
	path := writeFile(t, "releve.pdf", "%PDF-1.4")

	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, statementText, got)
	assert.Equal(t, 1, garbage.hits)
	assert.Equal(t, 1, broken.hits)
	assert.Equal(t, 0, never.hits)
}

func TestExtractReportsEveryStrategy(t *testing.T) {
	e := New(WithStrategies(".pdf",
		&fakeStrategy{name: "first", err: errors.New("no text layer")},
		&fakeStrategy{name: "second", text: "short"},
	))
	path := writeFile(t, "scan.pdf", "%PDF-1.4")

	_, err := e.Extract(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first: no text layer")
	assert.Contains(t, err.Error(), "second: text is not readable")
	assert.Contains(t, err.Error(), path)
}

func TestExtractHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeStrategy{name: "s", text: statementText}
	path := writeFile(t, "releve.pdf", "%PDF-1.4")

	_, err := New(WithStrategies(".pdf", s)).Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.hits)
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"statement", statementText, true},
		{"too short", "SOLDE 12,00", false},
		{"binary", strings.Repeat("\x00\x01\x1f", 30) + "solde", false},
		{"private use glyphs", strings.Repeat("\uE000", 60) + " solde releve", false},
		{"no statement words", strings.Repeat("lorem ipsum dolor sit amet ", 5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadableText(tt.text))
		})
	}
}

func TestOCRAvailable(t *testing.T) {
	_, err1 := exec.LookPath("pdftoppm")
	_, err2 := exec.LookPath("tesseract")
	assert.Equal(t, err1 == nil && err2 == nil, OCRAvailable())
}

func TestLibraryStrategyRejectsNonPDF(t *testing.T) {
	path := writeFile(t, "fake.pdf", "not a pdf at all")
	_, err := (&LibraryStrategy{}).Extract(context.Background(), path)
	assert.Error(t, err)
}
