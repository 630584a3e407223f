package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/middleware"
	"misa/internal/models"
)

// getUsername extracts the authenticated username from the Gin context.
// Returns ErrUnauthorized if not present.
func getUsername(c *gin.Context) (string, error) {
	username := c.GetString(middleware.UsernameKey)
	if username == "" {
		return "", apperrors.ErrUnauthorized
	}
	return username, nil
}

// parsePeriod reads the year and month query parameters. Missing values
// default to the current month; ok is false when neither was given.
func parsePeriod(c *gin.Context, now models.Period) (period models.Period, ok bool, err error) {
	yearRaw, monthRaw := c.Query("year"), c.Query("month")
	if yearRaw == "" && monthRaw == "" {
		return now, false, nil
	}

	year, month := now.Year, int(now.Month)
	if yearRaw != "" {
		if year, err = strconv.Atoi(yearRaw); err != nil {
			return models.Period{}, false, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year")
		}
	}
	if monthRaw != "" {
		if month, err = strconv.Atoi(monthRaw); err != nil {
			return models.Period{}, false, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month")
		}
	}

	period, err = models.NewPeriod(year, month)
	if err != nil {
		return models.Period{}, false, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return period, true, nil
}

// parseDecimalQuery reads an optional decimal query parameter.
func parseDecimalQuery(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+name)
	}
	return &d, nil
}

// respondWithError writes a consistent JSON error response.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
