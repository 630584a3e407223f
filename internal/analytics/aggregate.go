// Package analytics derives budget metrics from a snapshot of a user's
// transactions. Every function is pure: no I/O, no locking, and no input is
// modified.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"misa/internal/models"
)

// hundred is used for percentages.
var hundred = decimal.NewFromInt(100)

// Total is the summed amount for one grouping key.
type Total struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// FilterPeriod returns the countable transactions dated inside period.
func FilterPeriod(txs []models.Transaction, period models.Period) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Countable() && period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// Aggregate sums countable transactions by key. Every seed key is present
// even without transactions. Seeds come first in their given order; other
// keys follow alphabetically.
func Aggregate(txs []models.Transaction, key func(models.Transaction) string, seed []string) []Total {
	index := make(map[string]int, len(seed))
	out := make([]Total, 0, len(seed))
	for _, k := range seed {
		if _, dup := index[k]; dup {
			continue
		}
		index[k] = len(out)
		out = append(out, Total{Key: k, Amount: decimal.Zero})
	}
	seeded := len(out)

	for _, tx := range txs {
		if !tx.Countable() {
			continue
		}
		k := key(tx)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Total{Key: k, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		out[i].Count++
	}

	rest := out[seeded:]
	sort.Slice(rest, func(a, b int) bool { return rest[a].Key < rest[b].Key })
	return out
}

// ByCategory groups by category, seeded with the configured envelopes.
func ByCategory(txs []models.Transaction, cfg models.BudgetConfiguration) []Total {
	return Aggregate(txs, func(tx models.Transaction) string { return tx.Category }, cfg.Budgets.Names())
}

// ByMethod groups by payment method.
func ByMethod(txs []models.Transaction) []Total {
	return Aggregate(txs, func(tx models.Transaction) string { return tx.Method }, nil)
}

