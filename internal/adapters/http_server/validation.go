package httpserver

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"travel_gateway/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// dashdate is a shape check only; the provider judges the calendar.
	_ = v.RegisterValidation("dashdate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return utf8.RuneCountInString(s) == 10 && strings.Count(s, "-") == 2
	})
	return v
}

func validDepartureDate(s string) bool { return validate.Var(s, "dashdate") == nil }

func validCountryCodes(q domain.VisaQuery) bool { return validate.Struct(q) == nil }

// anyEmpty reports whether a required parameter is absent or blank.
func anyEmpty(vals ...string) bool {
	for _, v := range vals {
		if v == "" {
			return true
		}
	}
	return false
}
