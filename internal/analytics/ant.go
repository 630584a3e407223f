package analytics

import (
	"github.com/shopspring/decimal"

	"misa/internal/models"
)

// DefaultAntThreshold is the amount below which a purchase counts as an
// ant expense when the caller does not choose one.
var DefaultAntThreshold = decimal.NewFromInt(100)

// AntExpenses summarizes the small purchases of a transaction set.
type AntExpenses struct {
	Threshold    decimal.Decimal      `json:"threshold"`
	Count        int                  `json:"count"`
	Sum          decimal.Decimal      `json:"sum"`
	Transactions []models.Transaction `json:"transactions"`
}

// Clean reports whether no ant expenses were found.
func (a AntExpenses) Clean() bool { return a.Count == 0 }

// DetectAntExpenses selects the countable transactions strictly below
// threshold.
func DetectAntExpenses(txs []models.Transaction, threshold decimal.Decimal) AntExpenses {
	res := AntExpenses{
		Threshold:    threshold,
		Sum:          decimal.Zero,
		Transactions: []models.Transaction{},
	}
	for _, tx := range txs {
		if !tx.Countable() || !tx.Amount.LessThan(threshold) {
			continue
		}
		res.Transactions = append(res.Transactions, tx)
		res.Count++
		res.Sum = res.Sum.Add(tx.Amount)
	}
	return res
}
