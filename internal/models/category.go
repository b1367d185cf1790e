package models

import (
	"errors"
	"fmt"
	"sort"
)

// Category is a named budget bucket. Patterns are regular expressions
// searched in transaction descriptions. Ignore only affects presentation.
type Category struct {
	Name     string   `json:"name" yaml:"name"`
	Patterns []string `json:"patterns" yaml:"patterns"`
	Ignore   bool     `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// CategorySpec is the ordered set of categories used for one ventilation run.
type CategorySpec struct {
	Name       string     `json:"name" yaml:"name"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// Validate checks that category names are present and unique.
func (s CategorySpec) Validate() error {
	seen := make(map[string]bool, len(s.Categories))
	var errs []error
	for i, c := range s.Categories {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("category #%d has no name", i+1))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("category %q defined twice", c.Name))
		}
		seen[c.Name] = true
	}
	return errors.Join(errs...)
}

// Category looks a category up by name.
func (s CategorySpec) Category(name string) (Category, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// VentilationResult is the outcome of a successful ventilation run.
type VentilationResult struct {
	Spec                   CategorySpec             `json:"spec" yaml:"spec"`
	Totals                 map[string]Amount        `json:"totals" yaml:"totals"`
	Transactions           map[string][]Transaction `json:"transactions" yaml:"transactions"`
	Unassigned             Amount                   `json:"unassigned" yaml:"unassigned"`
	UnassignedTransactions []Transaction            `json:"unassigned_transactions" yaml:"unassigned_transactions"`
}

// Assigned is the sum of all category totals.
func (r *VentilationResult) Assigned() Amount {
	var total Amount
	for _, v := range r.Totals {
		total += v
	}
	return total
}

// CategoryTotal is one line of a ventilation summary.
type CategoryTotal struct {
	Name   string `json:"name" yaml:"name"`
	Amount Amount `json:"amount" yaml:"amount"`
	Ignore bool   `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// Ranked returns the category totals sorted by amount, largest first, with
// ties broken by spec order.
func (r *VentilationResult) Ranked() []CategoryTotal {
	var out []CategoryTotal
	for _, c := range r.Spec.Categories {
		amount, ok := r.Totals[c.Name]
		if !ok {
			continue
		}
		out = append(out, CategoryTotal{Name: c.Name, Amount: amount, Ignore: c.Ignore})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out
}
