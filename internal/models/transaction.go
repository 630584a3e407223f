package models

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
)

// Sentinel labels used when a transaction cannot be classified further.
const (
	CategoryOther         = "Otros"
	SubcategoryGeneral    = "General"
	SubcategoryManual     = "Manual"
	SubcategoryAIError    = "AI_Error"
	MethodImported        = "Imported"
	MaxConceptLength      = 200
	MaxSubcategoryLength  = 60
	MaxCategoryNameLength = 50
	MaxMethodLength       = 50

	// MoneyScale is the number of decimal places money values may carry.
	MoneyScale = 2
)

// DefaultPaymentMethods are the payment channels offered on manual entry.
// Method stays free text; these are suggestions only.
var DefaultPaymentMethods = []string{"BBVA", "Efectivo", "TDC", "Vales"}

// Transaction is one recorded financial event owned by a user.
type Transaction struct {
	Base
	Owner       string          `gorm:"size:64;not null;index" json:"owner"`
	Date        Date            `gorm:"type:date" json:"date"`
	Concept     string          `gorm:"not null" json:"concept"`
	Category    string          `gorm:"size:50;not null" json:"category"`
	Subcategory string          `gorm:"size:60" json:"subcategory"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Method      string          `gorm:"size:50" json:"method"`

	// Invalid marks a persisted row that could not be parsed. Such rows are
	// listed but never aggregated.
	Invalid bool `gorm:"-" json:"invalid,omitempty"`
}

// Validate checks the fields required to persist a transaction.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return apperrors.WithMessage(apperrors.ErrValidation, "owner is required")
	}
	if t.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrValidation, "date is required")
	}
	if strings.TrimSpace(t.Concept) == "" {
		return apperrors.WithMessage(apperrors.ErrValidation, "concept is required")
	}
	if utf8.RuneCountInString(t.Concept) > MaxConceptLength {
		return apperrors.WithMessage(apperrors.ErrValidation, "concept is too long (max 200 characters)")
	}
	if !t.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrValidation, "amount must be greater than zero")
	}
	if !FitsMoneyScale(t.Amount) {
		return apperrors.WithMessage(apperrors.ErrValidation, "amount must have at most 2 decimal places")
	}
	if utf8.RuneCountInString(t.Category) > MaxCategoryNameLength {
		return apperrors.WithMessage(apperrors.ErrValidation, "category is too long (max 50 characters)")
	}
	if utf8.RuneCountInString(t.Subcategory) > MaxSubcategoryLength {
		return apperrors.WithMessage(apperrors.ErrValidation, "subcategory is too long (max 60 characters)")
	}
	if utf8.RuneCountInString(t.Method) > MaxMethodLength {
		return apperrors.WithMessage(apperrors.ErrValidation, "method is too long (max 50 characters)")
	}
	return nil
}

// FitsMoneyScale reports whether d has no significant digits past the cent.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// Countable reports whether the transaction takes part in aggregation.
func (t Transaction) Countable() bool {
	return !t.Invalid && !t.Date.IsZero() && !t.Amount.IsNegative()
}
