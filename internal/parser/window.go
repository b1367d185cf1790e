package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// "du 14 décembre 2024 au 13 janvier 2025"
var headerPattern = regexp.MustCompile(
	`(?i)\bdu\s+(\d{1,2})(?:er)?\s+(\p{L}+)\s+(\d{4})\s+au\s+(\d{1,2})(?:er)?\s+(\p{L}+)\s+(\d{4})`,
)

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"decembre":  time.December,
}

// foldMonth lower-cases a month name and strips its diacritics so that
// "Février", "fevrier" and "FÉVRIER" compare equal.
func foldMonth(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(folded)
}

// MonthFromFrench returns the month for a French month name.
func MonthFromFrench(name string) (time.Month, bool) {
	m, ok := frenchMonths[foldMonth(name)]
	return m, ok
}

// extractWindow finds the statement period in the header.
func extractWindow(text string) (models.DateWindow, error) {
	m := headerPattern.FindStringSubmatch(text)
	if m == nil {
		return models.DateWindow{}, &ParseError{Kind: KindHeaderNotFound}
	}
	start, err := headerDate(m[1], m[2], m[3])
	if err != nil {
		return models.DateWindow{}, withText(err, m[0])
	}
	end, err := headerDate(m[4], m[5], m[6])
	if err != nil {
		return models.DateWindow{}, withText(err, m[0])
	}
	return models.DateWindow{Start: start, End: end}, nil
}

func headerDate(day, month, year string) (models.Date, error) {
	mon, ok := MonthFromFrench(month)
	if !ok {
		return models.Date{}, &ParseError{Kind: KindHeaderNotFound, Err: fmt.Errorf("unknown month %q", month)}
	}
	d, _ := strconv.Atoi(day)
	y, _ := strconv.Atoi(year)
	date, err := models.NewDate(y, mon, d)
	if err != nil {
		return models.Date{}, &ParseError{Kind: KindInvalidDate, Err: err}
	}
	return date, nil
}

func withText(err error, text string) error {
	if pe, ok := err.(*ParseError); ok && pe.Text == "" {
		pe.Text = text
	}
	return err
}

// ComputeYear picks the year of an operation month that is neither the first
// nor the last month of the statement period: a month more than six months
// after the end month belongs to the previous year.
func ComputeYear(opMonth, endMonth, endYear int) int {
	if opMonth > endMonth && opMonth-endMonth > 6 {
		return endYear - 1
	}
	return endYear
}

func splitPartial(partial string) (day, month int, err error) {
	parts := strings.Split(partial, ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed date %q", partial)
	}
	day, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed day in %q", partial)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("malformed month in %q", partial)
	}
	return day, month, nil
}

// resolveDate turns a "dd.mm" operation or value date into a full date
// using the statement window.
func resolveDate(partial string, w models.DateWindow, strict bool) (models.Date, error) {
	day, month, err := splitPartial(partial)
	if err != nil {
		return models.Date{}, err
	}

	var year int
	switch time.Month(month) {
	case w.End.Month:
		year = w.End.Year
	case w.Start.Month:
		year = w.Start.Year
	default:
		if strict {
			return models.Date{}, fmt.Errorf("month of %q is outside the statement period %s", partial, w)
		}
		year = ComputeYear(month, int(w.End.Month), w.End.Year)
	}
	return models.NewDate(year, time.Month(month), day)
}
