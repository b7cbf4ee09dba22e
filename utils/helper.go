package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeSpace lower-cases, trims and collapses runs of whitespace to a
// single space. Used for search blobs and query normalization.
func NormalizeSpace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), " ")
}

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// ParseNumericQuery reports whether the query is a plain number and returns
// its decimal value. Thousands separators are tolerated, same as formatted
// amount inputs elsewhere.
func ParseNumericQuery(query string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(query), ",", "")
	if cleaned == "" || strings.Count(cleaned, ".") > 1 {
		return decimal.Zero, false
	}
	for _, r := range cleaned {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
