package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BudgetEnvelope is the spending limit for one category.
type BudgetEnvelope struct {
	Name  string          `json:"name"`
	Limit decimal.Decimal `json:"limit"`
}

// Budgets maps category names to limits. Insertion order is kept for
// display; it is encoded as a JSON object in that order.
type Budgets []BudgetEnvelope

// Index returns the position of name, or -1.
func (b Budgets) Index(name string) int {
	for i, e := range b {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether an envelope named name exists.
func (b Budgets) Has(name string) bool { return b.Index(name) >= 0 }

// Limit returns the limit for name and whether it exists.
func (b Budgets) Limit(name string) (decimal.Decimal, bool) {
	if i := b.Index(name); i >= 0 {
		return b[i].Limit, true
	}
	return decimal.Zero, false
}

// Names returns the category names in insertion order.
func (b Budgets) Names() []string {
	names := make([]string, len(b))
	for i, e := range b {
		names[i] = e.Name
	}
	return names
}

// Total sums every limit.
func (b Budgets) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b {
		total = total.Add(e.Limit)
	}
	return total
}

// Validate checks names are unique and non-blank and limits non-negative.
func (b Budgets) Validate() error {
	seen := make(map[string]struct{}, len(b))
	for _, e := range b {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("category name is required")
		}
		if len(e.Name) > MaxCategoryNameLength {
			return fmt.Errorf("category %q is too long (max %d characters)", e.Name, MaxCategoryNameLength)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("duplicate category %q", e.Name)
		}
		if e.Limit.IsNegative() {
			return fmt.Errorf("limit for %q must not be negative", e.Name)
		}
		if !FitsMoneyScale(e.Limit) {
			return fmt.Errorf("limit for %q must have at most 2 decimal places", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// Clone returns an independent copy.
func (b Budgets) Clone() Budgets {
	if b == nil {
		return nil
	}
	out := make(Budgets, len(b))
	copy(out, b)
	return out
}

// MarshalJSON encodes the envelopes as an ordered JSON object.
func (b Budgets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.Limit.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (b *Budgets) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("budgets must be a JSON object")
	}

	out := Budgets{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var limit decimal.Decimal
		if err := limit.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("budget %q: %w", name, err)
		}
		out = append(out, BudgetEnvelope{Name: name, Limit: limit})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// BudgetConfiguration is a user's income and category limits.
type BudgetConfiguration struct {
	NetIncome decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"net_income"`
	Budgets   Budgets         `gorm:"serializer:json" json:"budgets"`
}

// CategoryNames returns the budget categories plus the implicit Otros.
func (c BudgetConfiguration) CategoryNames() []string {
	names := c.Budgets.Names()
	if !c.Budgets.Has(CategoryOther) {
		names = append(names, CategoryOther)
	}
	return names
}

// AcceptsCategory reports whether a transaction may be filed under name.
func (c BudgetConfiguration) AcceptsCategory(name string) bool {
	return name == CategoryOther || c.Budgets.Has(name)
}

// Validate checks income and envelopes.
func (c BudgetConfiguration) Validate() error {
	if c.NetIncome.IsNegative() {
		return fmt.Errorf("net income must not be negative")
	}
	if !FitsMoneyScale(c.NetIncome) {
		return fmt.Errorf("net income must have at most 2 decimal places")
	}
	return c.Budgets.Validate()
}

// Clone returns an independent copy.
func (c BudgetConfiguration) Clone() BudgetConfiguration {
	return BudgetConfiguration{NetIncome: c.NetIncome, Budgets: c.Budgets.Clone()}
}

// DefaultBudgetConfiguration is assigned at registration when the caller
// provides none.
func DefaultBudgetConfiguration() BudgetConfiguration {
	return BudgetConfiguration{
		NetIncome: decimal.NewFromInt(14600),
		Budgets: Budgets{
			{Name: "Renta", Limit: decimal.NewFromInt(3200)},
			{Name: "Alimentos", Limit: decimal.NewFromInt(2050)},
			{Name: "Transporte", Limit: decimal.NewFromInt(1800)},
			{Name: "Diversion", Limit: decimal.NewFromInt(1500)},
			{Name: "Servicios", Limit: decimal.NewFromInt(600)},
			{Name: CategoryOther, Limit: decimal.NewFromInt(500)},
		},
	}
}
