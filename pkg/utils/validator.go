package utils

import (
	"fmt"
	"regexp"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}
