package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nonDigitPattern = regexp.MustCompile(`[^0-9]`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10,15}$`)
)

const maxGroupNameLength = 25

// NormalizePhone strips everything except digits and rewrites a local
// leading 0 into the 62 country prefix before validating length.
func NormalizePhone(phone string) (string, error) {
	digits := nonDigitPattern.ReplaceAllString(strings.TrimSpace(phone), "")
	if digits == "" {
		return "", errors.New("phone number cannot be empty")
	}
	if strings.HasPrefix(digits, "0") {
		digits = "62" + digits[1:]
	}
	if !phonePattern.MatchString(digits) {
		return "", errors.New("phone number must be 10-15 digits")
	}
	return digits, nil
}

// ValidateGroupName ensures a WhatsApp group subject is 1-25 characters.
func ValidateGroupName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("group name cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > maxGroupNameLength {
		return errors.New("group name must be at most 25 characters")
	}
	return nil
}
