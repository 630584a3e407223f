// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"misa/internal/models"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{2,63}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom tags on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("category_name", validateCategoryName)
	_ = v.RegisterValidation("iso_date", validateISODate)
	_ = v.RegisterValidation("payment_method", validatePaymentMethod)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

// validateCategoryName accepts non-blank names up to the category length
// limit without control characters.
func validateCategoryName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) == "" || len(name) > models.MaxCategoryNameLength {
		return false
	}
	return !strings.ContainsAny(name, "\r\n\t")
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

// validatePaymentMethod keeps the free-text method short and single-line.
func validatePaymentMethod(fl validator.FieldLevel) bool {
	method := fl.Field().String()
	return utf8.RuneCountInString(method) <= 50 && !strings.ContainsAny(method, "\r\n")
}
