package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrValidationFailed = errors.New("validation failed")

const (
	MaxProductIDLength      = 100
	MaxTransactionKeyLength = 100
	MaxCustomerIDLength     = 50
	MaxCategoryLength       = 100
	MaxCountryLength        = 100
	MaxDescriptionLength    = 1024
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// TruncateRunes cuts s to at most maxLength characters.
func TruncateRunes(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	r := []rune(s)
	return string(r[:maxLength])
}
