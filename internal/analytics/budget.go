package analytics

import (
	"github.com/shopspring/decimal"

	"misa/internal/models"
)

// UsageLevel classifies how much of the total budget has been used.
type UsageLevel string

const (
	UsageOnTrack    UsageLevel = "on_track"
	UsageNearLimit  UsageLevel = "near_limit"
	UsageOverBudget UsageLevel = "over_budget"
)

var nearLimitPercent = decimal.NewFromInt(80)

// EnvelopeComparison pairs one envelope's limit with actual spend.
type EnvelopeComparison struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Actual   decimal.Decimal `json:"actual"`
	Delta    decimal.Decimal `json:"delta"`
}

// BudgetComparison is the budget-vs-actual view of a transaction set.
type BudgetComparison struct {
	Envelopes   []EnvelopeComparison `json:"envelopes"`
	Unbudgeted  []Total              `json:"unbudgeted"`
	TotalBudget decimal.Decimal      `json:"total_budget"`
	TotalSpent  decimal.Decimal      `json:"total_spent"`
	PercentUsed decimal.Decimal      `json:"percent_used"`
	Usage       UsageLevel           `json:"usage"`
}

// CompareBudget compares spend in txs against every configured envelope.
// TotalSpent covers all countable transactions, including categories that
// have no envelope; those are listed in Unbudgeted.
func CompareBudget(txs []models.Transaction, cfg models.BudgetConfiguration) BudgetComparison {
	totals := ByCategory(txs, cfg)

	cmp := BudgetComparison{
		Envelopes:   make([]EnvelopeComparison, 0, len(cfg.Budgets)),
		Unbudgeted:  []Total{},
		TotalBudget: cfg.Budgets.Total(),
		TotalSpent:  decimal.Zero,
	}
	for _, t := range totals {
		cmp.TotalSpent = cmp.TotalSpent.Add(t.Amount)
		limit, ok := cfg.Budgets.Limit(t.Key)
		if !ok {
			cmp.Unbudgeted = append(cmp.Unbudgeted, t)
			continue
		}
		cmp.Envelopes = append(cmp.Envelopes, EnvelopeComparison{
			Category: t.Key,
			Limit:    limit,
			Actual:   t.Amount,
			Delta:    limit.Sub(t.Amount),
		})
	}
	cmp.PercentUsed = PercentUsed(cmp.TotalSpent, cmp.TotalBudget)
	cmp.Usage = Usage(cmp.PercentUsed)
	return cmp
}

// PercentUsed returns 100 × spent / budget, or 0 when budget is not positive.
func PercentUsed(spent, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() {
		return decimal.Zero
	}
	return spent.Mul(hundred).Div(budget)
}

// Usage maps a percentage to its level: below 80 is on track, below 100
// is near the limit.
func Usage(percent decimal.Decimal) UsageLevel {
	switch {
	case percent.LessThan(nearLimitPercent):
		return UsageOnTrack
	case percent.LessThan(hundred):
		return UsageNearLimit
	default:
		return UsageOverBudget
	}
}

// Cashflow returns what is left of netIncome after totalSpent.
func Cashflow(netIncome, totalSpent decimal.Decimal) decimal.Decimal {
	return netIncome.Sub(totalSpent)
}
