package models

import (
	"fmt"
	"time"
)

// Period selects one calendar month of a user's transactions.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewPeriod validates and builds a Period.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 1 {
		return Period{}, fmt.Errorf("year must be positive, got %d", year)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return !d.IsZero() && d.Year() == p.Year && d.Month() == p.Month
}

// DaysInMonth returns the number of calendar days in the period.
func (p Period) DaysInMonth() int {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsCurrent reports whether now falls inside the period.
func (p Period) IsCurrent(now time.Time) bool {
	return now.Year() == p.Year && now.Month() == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
