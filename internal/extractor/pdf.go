package extractor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LibraryStrategy extracts PDF text with the pure-Go ledongthuc/pdf reader.
// Rows come from GetTextByRow; pages where that yields nothing are rebuilt
// from positioned text runs.
type LibraryStrategy struct{}

func (*LibraryStrategy) Name() string { return "pdf-library" }

func (*LibraryStrategy) Extract(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines := pageRows(page)
		if len(lines) == 0 {
			lines = pageRuns(page)
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return strings.Join(pages, "\n"), nil
}

func pageRows(page pdf.Page) []string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// pageRuns groups text runs by rounded Y coordinate (top to bottom) and
// orders each row by X, inserting a space at column gaps.
func pageRuns(page pdf.Page) []string {
	type run struct {
		x float64
		s string
	}
	rows := make(map[int][]run)
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], run{x: t.X, s: t.S})
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var lines []string
	for _, y := range ys {
		runs := rows[y]
		sort.Slice(runs, func(a, b int) bool { return runs[a].x < runs[b].x })

		var b strings.Builder
		var prevX float64
		for i, r := range runs {
			if i > 0 && r.x-prevX > 15 {
				b.WriteByte(' ')
			}
			b.WriteString(r.s)
			prevX = r.x
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
