package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Polarity tells whether a movement adds to (credit) or removes from (debit)
// the account.
type Polarity string

const (
	Credit Polarity = "credit"
	Debit  Polarity = "debit"
)

// ParsePolarity accepts "credit"/"debit" in any case, plus the French
// balance words CREDITEUR/DEBITEUR.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "crediteur":
		return Credit, nil
	case "debit", "debiteur":
		return Debit, nil
	default:
		return "", fmt.Errorf("unknown polarity %q", s)
	}
}

func (p Polarity) String() string { return string(p) }

// UnmarshalText accepts an empty value as the zero Polarity so that unset
// balances survive a round trip.
func (p *Polarity) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*p = ""
		return nil
	}
	v, err := ParsePolarity(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p *Polarity) UnmarshalYAML(node *yaml.Node) error {
	if err := p.UnmarshalText([]byte(node.Value)); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

// Transaction is one movement on the statement. Date is the operation date,
// ValueDate the date the bank applied it.
type Transaction struct {
	Date        Date     `json:"date" yaml:"date"`
	ValueDate   Date     `json:"value_date" yaml:"value_date"`
	Description string   `json:"description" yaml:"description"`
	Amount      Amount   `json:"amount" yaml:"amount"`
	Polarity    Polarity `json:"polarity" yaml:"polarity"`
}

// Signed returns the amount as it affects the balance.
func (t Transaction) Signed() Amount {
	if t.Polarity == Debit {
		return -t.Amount
	}
	return t.Amount
}

// DateWindow is the statement period taken from its header.
type DateWindow struct {
	Start Date `json:"start" yaml:"start"`
	End   Date `json:"end" yaml:"end"`
}

func (w DateWindow) String() string {
	return w.Start.String() + " → " + w.End.String()
}

// Balance is an account balance as printed on the statement.
type Balance struct {
	Polarity Polarity `json:"polarity" yaml:"polarity"`
	Amount   Amount   `json:"amount" yaml:"amount"`
	Date     Date     `json:"date,omitempty" yaml:"date,omitempty"`
}

// Signed returns the balance with debit balances negative.
func (b Balance) Signed() Amount {
	if b.Polarity == Debit {
		return -b.Amount
	}
	return b.Amount
}

// DeclaredTotals are the bank's own per-polarity sums for the period.
type DeclaredTotals struct {
	Debit  Amount `json:"debit" yaml:"debit"`
	Credit Amount `json:"credit" yaml:"credit"`
}

// Statement is one parsed and reconciled bank statement. Values are not
// modified after the parser returns them.
type Statement struct {
	Source       string         `json:"source,omitempty" yaml:"source,omitempty"`
	Window       DateWindow     `json:"window" yaml:"window"`
	PeriodEnd    Date           `json:"period_end" yaml:"period_end"`
	Opening      Balance        `json:"opening_balance" yaml:"opening_balance"`
	Closing      Balance        `json:"closing_balance" yaml:"closing_balance"`
	Totals       DeclaredTotals `json:"totals" yaml:"totals"`
	Transactions []Transaction  `json:"transactions" yaml:"transactions"`
}

// Sum adds up the transactions of one polarity.
func (s *Statement) Sum(p Polarity) Amount {
	var total Amount
	for _, t := range s.Transactions {
		if t.Polarity == p {
			total += t.Amount
		}
	}
	return total
}

// Debits returns the spending transactions in statement order.
func (s *Statement) Debits() []Transaction {
	var out []Transaction
	for _, t := range s.Transactions {
		if t.Polarity == Debit {
			out = append(out, t)
		}
	}
	return out
}

// BalanceDrift is (closing - opening) - (credits - debits). It is zero when
// the printed balances agree with the transactions.
func (s *Statement) BalanceDrift() Amount {
	moved := s.Sum(Credit) - s.Sum(Debit)
	return (s.Closing.Signed() - s.Opening.Signed()) - moved
}

// Name identifies the statement in messages.
func (s *Statement) Name() string {
	if s.Source != "" {
		return s.Source
	}
	return "statement ending " + s.PeriodEnd.String()
}
