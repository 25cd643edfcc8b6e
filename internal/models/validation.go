package models

import (
	"fmt"
	"strings"
)

// FieldError describes a single validation violation. Validation collects
// all violations rather than stopping at the first, so callers can surface
// every problem at once.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// JoinFieldErrors renders a list of field errors as a single message.
func JoinFieldErrors(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}
