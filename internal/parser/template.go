package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Marker identifies a line that ends a multi-line description. A prefix
// marker must start the line, otherwise the text may appear anywhere in it.
type Marker struct {
	Text   string `yaml:"text" json:"text"`
	Prefix bool   `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

func (m Marker) matches(line string) bool {
	if m.Prefix {
		return strings.HasPrefix(line, m.Text)
	}
	return strings.Contains(line, m.Text)
}

// Template holds the issuer-specific vocabulary of a statement layout.
type Template struct {
	Name string `yaml:"name" json:"name"`
	// Detect lists phrases whose presence identifies the issuer.
	Detect         []string `yaml:"detect" json:"detect"`
	BalancePhrase  string   `yaml:"balance_phrase" json:"balance_phrase"`
	CreditWord     string   `yaml:"credit_word" json:"credit_word"`
	DebitWord      string   `yaml:"debit_word" json:"debit_word"`
	TotalsPhrase   string   `yaml:"totals_phrase" json:"totals_phrase"`
	StopMarkers    []Marker `yaml:"stop_markers" json:"stop_markers"`
	CreditKeywords []string `yaml:"credit_keywords" json:"credit_keywords"`
	// StrictWindow rejects operation months that are neither the first nor
	// the last month of the statement period.
	StrictWindow bool `yaml:"strict_window,omitempty" json:"strict_window,omitempty"`
}

// BNP returns the layout of BNP Paribas "relevé de compte" statements.
func BNP() Template {
	return Template{
		Name:          "bnp",
		Detect:        []string{"BNP PARIBAS", "BNPPARIBAS"},
		BalancePhrase: "SOLDE",
		CreditWord:    "CREDITEUR",
		DebitWord:     "DEBITEUR",
		TotalsPhrase:  "TOTAL DES OPERATIONS",
		StopMarkers: []Marker{
			{Text: "BNP PARIBAS"},
			{Text: "P.", Prefix: true},
			{Text: "504", Prefix: true},
			{Text: "SCPT", Prefix: true},
			{Text: "RELEVE DE COMPTE"},
			{Text: "D ate"},
			{Text: "Date Nature"},
			{Text: "RIB :"},
			{Text: "TOTAL DES OPERATIONS"},
			{Text: "SOLDE CREDITEUR"},
			{Text: "SOLDE DEBITEUR"},
		},
		CreditKeywords: []string{
			"VIR SEPA RECU",
			"VIR CPTE A CPTE RECU",
			"REJET RECU",
			"RETROCESSION",
			"REMISE CHEQUES",
			"REMBOURST",
		},
	}
}

// Validate checks that every phrase needed to build the matchers is set.
func (t Template) Validate() error {
	missing := []string{}
	if t.Name == "" {
		missing = append(missing, "name")
	}
	if t.BalancePhrase == "" {
		missing = append(missing, "balance_phrase")
	}
	if t.CreditWord == "" {
		missing = append(missing, "credit_word")
	}
	if t.DebitWord == "" {
		missing = append(missing, "debit_word")
	}
	if t.TotalsPhrase == "" {
		missing = append(missing, "totals_phrase")
	}
	if len(missing) > 0 {
		return fmt.Errorf("template %q: missing %s", t.Name, strings.Join(missing, ", "))
	}
	return nil
}

func (t Template) isStop(line string) bool {
	for _, m := range t.StopMarkers {
		if m.matches(line) {
			return true
		}
	}
	return false
}

func (t Template) isCredit(description string) bool {
	for _, kw := range t.CreditKeywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// matchers are the compiled regular expressions derived from a template.
type matchers struct {
	balance *regexp.Regexp
	totals  *regexp.Regexp
}

func (t Template) compile() (*matchers, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	balance, err := regexp.Compile(fmt.Sprintf(`%s\s+(%s|%s)\s+AU\s+(\d{2}\.\d{2}\.\d{4})\s+(%s)`,
		regexp.QuoteMeta(t.BalancePhrase),
		regexp.QuoteMeta(t.CreditWord),
		regexp.QuoteMeta(t.DebitWord),
		amountPattern))
	if err != nil {
		return nil, fmt.Errorf("template %q: balance pattern: %w", t.Name, err)
	}
	totals, err := regexp.Compile(fmt.Sprintf(`%s\s+(%s)\s+(%s)`,
		regexp.QuoteMeta(t.TotalsPhrase), amountPattern, amountPattern))
	if err != nil {
		return nil, fmt.Errorf("template %q: totals pattern: %w", t.Name, err)
	}
	return &matchers{balance: balance, totals: totals}, nil
}

// Registry holds the known templates by name.
type Registry struct {
	templates map[string]Template
}

// NewRegistry returns a registry holding the given templates. Later entries
// replace earlier ones with the same name.
func NewRegistry(templates ...Template) *Registry {
	r := &Registry{templates: make(map[string]Template)}
	for _, t := range templates {
		r.templates[t.Name] = t
	}
	return r
}

// DefaultRegistry returns a registry with the built-in templates.
func DefaultRegistry() *Registry {
	return NewRegistry(BNP())
}

// Add registers or replaces a template.
func (r *Registry) Add(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.templates[t.Name] = t
	return nil
}

// Lookup returns the template registered under name.
func (r *Registry) Lookup(name string) (Template, error) {
	t, ok := r.templates[strings.ToLower(name)]
	if !ok {
		t, ok = r.templates[name]
	}
	if !ok {
		return Template{}, fmt.Errorf("unknown statement template %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return t, nil
}

// Names lists registered template names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect identifies the template from the statement content.
func (r *Registry) Detect(text string) (Template, error) {
	upper := strings.ToUpper(text)
	for _, name := range r.Names() {
		t := r.templates[name]
		for _, marker := range t.Detect {
			if marker != "" && strings.Contains(upper, strings.ToUpper(marker)) {
				return t, nil
			}
		}
	}
	return Template{}, fmt.Errorf("could not detect the statement template from its content; please specify one of: %s", strings.Join(r.Names(), ", "))
}
