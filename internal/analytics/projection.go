package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"misa/internal/models"
)

// Projection extrapolates a month's spend from its daily average so far.
type Projection struct {
	DaysInMonth  int             `json:"days_in_month"`
	ElapsedDays  int             `json:"elapsed_days"`
	AverageDaily decimal.Decimal `json:"average_daily"`
	Projected    decimal.Decimal `json:"projected"`
}

// Project computes the end-of-month projection for period as seen at now.
// Only the current month is extrapolated; any other month is treated as
// fully elapsed and projects to exactly totalSpent.
func Project(totalSpent decimal.Decimal, period models.Period, now time.Time) Projection {
	days := period.DaysInMonth()
	elapsed := days
	if period.IsCurrent(now) {
		elapsed = min(now.Day(), days)
	}

	p := Projection{
		DaysInMonth:  days,
		ElapsedDays:  elapsed,
		AverageDaily: decimal.Zero,
		Projected:    decimal.Zero,
	}
	if elapsed <= 0 {
		return p
	}

	p.AverageDaily = totalSpent.Div(decimal.NewFromInt(int64(elapsed)))
	if elapsed == days {
		p.Projected = totalSpent
		return p
	}
	p.Projected = p.AverageDaily.Mul(decimal.NewFromInt(int64(days)))
	return p
}

// AlertLevel grades a projection against income and budget.
type AlertLevel string

const (
	AlertHealthy  AlertLevel = "healthy"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert is critical when the projection exceeds income and a warning when it
// only exceeds the total budget.
func Alert(projected, netIncome, totalBudget decimal.Decimal) AlertLevel {
	switch {
	case projected.GreaterThan(netIncome):
		return AlertCritical
	case projected.GreaterThan(totalBudget):
		return AlertWarning
	default:
		return AlertHealthy
	}
}
