package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"misa/internal/models"
)

// Report is everything the dashboard shows for one period.
type Report struct {
	Period       models.Period    `json:"period"`
	NetIncome    decimal.Decimal  `json:"net_income"`
	Budget       BudgetComparison `json:"budget"`
	Disposable   decimal.Decimal  `json:"disposable"`
	Projection   Projection       `json:"projection"`
	Alert        AlertLevel       `json:"alert"`
	Distribution []Total          `json:"distribution"`
	ByMethod     []Total          `json:"by_method"`
	Curve        Curve            `json:"curve"`
	AntExpenses  AntExpenses      `json:"ant_expenses"`
	Transactions int              `json:"transactions"`
	Invalid      int              `json:"invalid"`
}

// BuildReport filters txs to period and assembles every metric. Invalid
// rows anywhere in txs are counted but never aggregated.
func BuildReport(txs []models.Transaction, cfg models.BudgetConfiguration, period models.Period, now time.Time, antThreshold decimal.Decimal) Report {
	inPeriod := FilterPeriod(txs, period)
	budget := CompareBudget(inPeriod, cfg)
	projection := Project(budget.TotalSpent, period, now)

	distribution := make([]Total, 0, len(inPeriod))
	for _, t := range ByCategory(inPeriod, cfg) {
		if t.Count > 0 {
			distribution = append(distribution, t)
		}
	}

	invalid := 0
	for _, tx := range txs {
		if !tx.Countable() {
			invalid++
		}
	}

	return Report{
		Period:       period,
		NetIncome:    cfg.NetIncome,
		Budget:       budget,
		Disposable:   Cashflow(cfg.NetIncome, budget.TotalSpent),
		Projection:   projection,
		Alert:        Alert(projection.Projected, cfg.NetIncome, budget.TotalBudget),
		Distribution: distribution,
		ByMethod:     ByMethod(inPeriod),
		Curve:        CumulativeCurve(inPeriod, budget.TotalBudget),
		AntExpenses:  DetectAntExpenses(inPeriod, antThreshold),
		Transactions: len(inPeriod),
		Invalid:      invalid,
	}
}
