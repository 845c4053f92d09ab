// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("currency", validateCurrency)
	validate.RegisterValidation("idempotency_key", validateIdempotencyKey)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateCurrency(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "" {
		return true
	}
	matched, _ := regexp.MatchString("^[A-Z]{3}$", code)
	return matched
}

// Idempotency keys are client-supplied; constrain them to a shape safe for
// derived per-seller keys and index lookups.
func validateIdempotencyKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if len(key) < 8 || len(key) > 128 {
		return false
	}
	matched, _ := regexp.MatchString("^[a-zA-Z0-9_-]+$", key)
	return matched
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "currency":
		return "Currency must be a 3-letter ISO code"
	case "idempotency_key":
		return "Idempotency key must be 8-128 characters of letters, digits, hyphen or underscore"
	default:
		return e.Field() + " is invalid"
	}
}
