package model

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed identity tuple or filter, rejected
// before any call reaches the record store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateIdentity checks the caller-supplied parts of an identity tuple.
// Namespace may be empty here; callers default it to DefaultNamespace.
func ValidateIdentity(category, key string) error {
	if strings.TrimSpace(category) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if strings.TrimSpace(key) == "" {
		return &ValidationError{Field: "key", Reason: "must not be empty"}
	}
	return nil
}
