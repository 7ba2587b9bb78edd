package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultPhonePattern accepts a local mobile number with an optional
// country prefix, e.g. 0911111111, 963911111111 or +963911111111.
const DefaultPhonePattern = `^(\+?963|0)?9\d{8}$`

// DefaultCountryCode is prepended to numbers that carry no prefix.
const DefaultCountryCode = "963"

// StripSpaces removes every whitespace rune from s.
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// PhoneValidator checks client phone numbers against a regional pattern.
type PhoneValidator struct {
	re *regexp.Regexp
}

// NewPhoneValidator compiles pattern; an empty pattern selects
// DefaultPhonePattern.
func NewPhoneValidator(pattern string) (*PhoneValidator, error) {
	if pattern == "" {
		pattern = DefaultPhonePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &PhoneValidator{re: re}, nil
}

// Valid reports whether raw, with whitespace removed, matches the pattern.
// It also returns the stripped form that should be stored.
func (v *PhoneValidator) Valid(raw string) (string, bool) {
	s := StripSpaces(raw)
	return s, v.re.MatchString(s)
}

// NormalizePhone converts a stored number into international form before it
// reaches a delivery channel: non-digits are dropped, a leading trunk 0 is
// replaced by the country code, the code is prepended when missing and the
// result is prefixed with "+".
func NormalizePhone(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	switch {
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	case !strings.HasPrefix(digits, countryCode):
		digits = countryCode + digits
	}
	return "+" + digits
}
