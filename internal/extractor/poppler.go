package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// PdftotextStrategy shells out to pdftotext (poppler-utils) in layout mode.
type PdftotextStrategy struct{}

func (*PdftotextStrategy) Name() string { return "pdftotext" }

func (*PdftotextStrategy) Extract(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not available: %w", err)
	}
	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("pdftotext produced no output")
	}
	return text, nil
}

// OCRStrategy renders pages with pdftoppm and reads them with Tesseract.
// It is the last resort for scanned statements.
type OCRStrategy struct {
	// Language is the Tesseract language pack, "fra" when empty.
	Language string
}

func (*OCRStrategy) Name() string { return "ocr" }

// OCRAvailable reports whether pdftoppm and tesseract are installed.
func OCRAvailable() bool {
	_, err1 := exec.LookPath("pdftoppm")
	_, err2 := exec.LookPath("tesseract")
	return err1 == nil && err2 == nil
}

func (s *OCRStrategy) Extract(ctx context.Context, path string) (string, error) {
	if !OCRAvailable() {
		return "", fmt.Errorf("ocr needs pdftoppm (poppler-utils) and tesseract")
	}
	lang := s.Language
	if lang == "" {
		lang = "fra"
	}

	dir, err := os.MkdirTemp("", "releve-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	if out, err := exec.CommandContext(ctx, "pdftoppm", "-r", "300", "-png", path, prefix).CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", err
	}
	sort.Strings(images)
	if len(images) == 0 {
		return "", fmt.Errorf("pdftoppm produced no page images")
	}

	var pages []string
	for _, img := range images {
		// psm 4: single column of variable-size text
		out, err := exec.CommandContext(ctx, "tesseract", img, "stdout", "-l", lang, "--psm", "4").Output()
		if err != nil {
			return "", fmt.Errorf("tesseract %s: %w", filepath.Base(img), err)
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("ocr produced no text from %d page images", len(images))
	}
	return strings.Join(pages, "\n"), nil
}
