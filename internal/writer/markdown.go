package writer

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// UnassignedLabel names the unassigned spending slice in reports.
const UnassignedLabel = "Non assigné"

// MarkdownWriter renders a ventilation result as a Markdown document with a
// Mermaid pie chart. Ignored categories are left out of the chart.
type MarkdownWriter struct{}

// WriteToFile writes the report to path.
func (w *MarkdownWriter) WriteToFile(path string, res *models.VentilationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders the report to out.
func (w *MarkdownWriter) Write(out io.Writer, res *models.VentilationResult) error {
	slices := chartSlices(res)

	if _, err := fmt.Fprintf(out, "# Ventilation: %s\n\n```mermaid\npie showData\n", res.Spec.Name); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	for _, s := range slices {
		if _, err := fmt.Fprintf(out, "    \"%s\" : %s\n", s.Name, s.Amount); err != nil {
			return fmt.Errorf("failed to write markdown: %w", err)
		}
	}
	if _, err := io.WriteString(out, "```\n"); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

// chartSlices returns the non-ignored totals plus unassigned spending,
// largest first.
func chartSlices(res *models.VentilationResult) []models.CategoryTotal {
	var slices []models.CategoryTotal
	for _, ct := range res.Ranked() {
		if !ct.Ignore {
			slices = append(slices, ct)
		}
	}
	if res.Unassigned > 0 {
		slices = append(slices, models.CategoryTotal{Name: UnassignedLabel, Amount: res.Unassigned})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Amount > slices[j].Amount
	})
	return slices
}
