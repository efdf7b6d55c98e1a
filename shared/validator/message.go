package validator

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	val "github.com/go-playground/validator/v10"
)

const messageSeparator = "; "

var (
	messages = map[string]string{
		"required": "{field} is required",
		"gte":      "{field} must be greater than or equal to {param}",
		"lte":      "{field} must be less than or equal to {param}",
		"oneof":    "{field} must be one of {param}",
		"max":      "{field} must be at most {param} characters long",
		"email":    "{field} must be a valid email address",
		"phone":    "{field} must contain at least 7 digits and only digits, spaces, hyphens, parentheses and an optional leading '+'",
		"date":     "{field} must be a date formatted as YYYY-MM-DD",
		"adult":    "{field} must belong to a guest who is at least {param} years old",
		"uuid":     "{field} must be a valid identifier",
		"url":      "{field} must be a valid URL",
		"datauri":  "{field} must be a base64 data URI",
		"empty":    "{field} must not be set",
	}

	// matches a single oneof value, quoted values may contain spaces
	oneOfValue = regexp.MustCompile(`'[^']*'|\S+`)
)

// message renders every violation in err, one per field, in declaration order.
func message(err error, name string) string {
	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(valErrors))
	for _, valErr := range valErrors {
		parts = append(parts, describe(valErr, name))
	}

	return strings.Join(parts, messageSeparator)
}

func describe(valErr val.FieldError, name string) string {
	tmpl, ok := messages[valErr.Tag()]
	if !ok {
		return valErr.Error()
	}

	field := valErr.Field()
	if field == "" {
		field = name
	}

	return strings.NewReplacer("{field}", field, "{param}", param(valErr)).Replace(tmpl)
}

func param(valErr val.FieldError) string {
	switch valErr.Tag() {
	case "oneof":
		values := oneOfValue.FindAllString(valErr.Param(), -1)
		for i, value := range values {
			values[i] = strings.Trim(value, "'")
		}

		return strings.Join(values, ", ")
	case "adult":
		return strconv.Itoa(minimumGuestAge)
	default:
		return valErr.Param()
	}
}
