// Package suggest proposes category patterns for the spending a ventilation
// run left unassigned.
package suggest

import (
	"regexp"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

const maxExamples = 3

// Suggestion groups the unassigned transactions that share a keyword.
type Suggestion struct {
	Category string        `yaml:"category" json:"category"`
	Keyword  string        `yaml:"keyword" json:"keyword"`
	Pattern  string        `yaml:"pattern" json:"pattern"`
	Exists   bool          `yaml:"exists" json:"exists"`
	Count    int           `yaml:"count" json:"count"`
	Amount   models.Amount `yaml:"amount" json:"amount"`
	Examples []string      `yaml:"examples" json:"examples"`
}

// Suggest scans the unassigned transactions of res against rules. Keywords
// whose pattern the target category already has are skipped. Results are
// sorted by amount, largest first; limit <= 0 returns them all.
func Suggest(res *models.VentilationResult, rules []Rule, limit int) []Suggestion {
	type key struct{ category, keyword string }
	groups := make(map[key]*Suggestion)

	for _, txn := range res.UnassignedTransactions {
		rule, keyword, ok := match(txn.Description, rules)
		if !ok {
			continue
		}
		pattern := PatternFor(keyword)
		existing, exists := res.Spec.Category(rule.Category)
		if exists && contains(existing.Patterns, pattern) {
			continue
		}

		k := key{rule.Category, keyword}
		s, ok := groups[k]
		if !ok {
			s = &Suggestion{Category: rule.Category, Keyword: keyword, Pattern: pattern, Exists: exists}
			groups[k] = s
		}
		s.Count++
		s.Amount += txn.Amount
		if len(s.Examples) < maxExamples && !contains(s.Examples, txn.Description) {
			s.Examples = append(s.Examples, txn.Description)
		}
	}

	out := make([]Suggestion, 0, len(groups))
	for _, s := range groups {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Keyword < b.Keyword
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Apply returns a copy of spec with the suggested patterns added. Unknown
// categories are appended in suggestion order.
func Apply(spec models.CategorySpec, suggestions []Suggestion) models.CategorySpec {
	out := models.CategorySpec{Name: spec.Name, Categories: make([]models.Category, len(spec.Categories))}
	for i, c := range spec.Categories {
		c.Patterns = append([]string(nil), c.Patterns...)
		out.Categories[i] = c
	}

	for _, s := range suggestions {
		idx := -1
		for i, c := range out.Categories {
			if c.Name == s.Category {
				idx = i
				break
			}
		}
		if idx < 0 {
			out.Categories = append(out.Categories, models.Category{Name: s.Category, Patterns: []string{s.Pattern}})
			continue
		}
		if !contains(out.Categories[idx].Patterns, s.Pattern) {
			out.Categories[idx].Patterns = append(out.Categories[idx].Patterns, s.Pattern)
		}
	}
	return out
}

// PatternFor turns a keyword into a literal pattern.
func PatternFor(keyword string) string {
	return regexp.QuoteMeta(keyword)
}

func match(description string, rules []Rule) (Rule, string, bool) {
	upper := strings.ToUpper(description)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(upper, kw) {
				return r, kw, true
			}
		}
	}
	return Rule{}, "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
