package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidationError represents a client-side validation failure.
// It is raised before any request reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RequireNonEmpty fails when value is blank after trimming
func RequireNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateEmail checks the loose address shape the login form accepts
func ValidateEmail(field, value string) error {
	if err := RequireNonEmpty(field, value); err != nil {
		return err
	}
	if !emailRegex.MatchString(strings.TrimSpace(value)) {
		return &ValidationError{Field: field, Message: field + " is invalid"}
	}
	return nil
}
