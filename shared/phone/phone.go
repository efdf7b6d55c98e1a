// Package phone holds the guest phone number rules shared by validation,
// uniqueness checks and self-service lookups.
package phone

import (
	"regexp"
	"strings"
)

const minDigits = 7

var (
	formatPattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	nonDigits     = regexp.MustCompile(`\D`)
)

// Normalize rewrites a leading "+" as "00" and strips everything that is not a digit.
func Normalize(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "+") {
		number = "00" + number[1:]
	}

	return nonDigits.ReplaceAllString(number, "")
}

// Valid reports whether number only uses digits, spaces, hyphens, parentheses and an
// optional leading "+", and carries at least seven digits.
func Valid(number string) bool {
	number = strings.TrimSpace(number)
	if !formatPattern.MatchString(number) {
		return false
	}

	return len(nonDigits.ReplaceAllString(number, "")) >= minDigits
}

// IsEmail tells an email apart from a phone number in "email or phone" lookups.
func IsEmail(value string) bool {
	return strings.Contains(value, "@")
}
