package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"misa/internal/models"
)

// CurvePoint is one day of the cumulative spend curve.
type CurvePoint struct {
	Date       models.Date     `json:"date"`
	Spent      decimal.Decimal `json:"spent"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// Curve is the running spend total compared against a flat budget line.
type Curve struct {
	Points     []CurvePoint    `json:"points"`
	BudgetLine decimal.Decimal `json:"budget_line"`
}

// CumulativeCurve groups countable transactions by date in ascending order
// and carries a running total.
func CumulativeCurve(txs []models.Transaction, totalBudget decimal.Decimal) Curve {
	byDay := make(map[string]*CurvePoint)
	for _, tx := range txs {
		if !tx.Countable() {
			continue
		}
		key := tx.Date.String()
		p, ok := byDay[key]
		if !ok {
			p = &CurvePoint{Date: tx.Date, Spent: decimal.Zero}
			byDay[key] = p
		}
		p.Spent = p.Spent.Add(tx.Amount)
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	curve := Curve{Points: make([]CurvePoint, 0, len(days)), BudgetLine: totalBudget}
	running := decimal.Zero
	for _, d := range days {
		p := *byDay[d]
		running = running.Add(p.Spent)
		p.Cumulative = running
		curve.Points = append(curve.Points, p)
	}
	return curve
}
