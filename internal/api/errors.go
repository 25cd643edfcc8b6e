package api

import (
	"errors"
	"fmt"

	"github.com/towerops/fieldtrack/internal/models"
)

// Kind is the semantic error category surfaced to callers. Core logic deals
// only in kinds; human-readable text is applied at the boundary by
// UserMessage.
type Kind string

const (
	KindValidation       Kind = "validation_failed"
	KindNotAuthenticated Kind = "not_authenticated"
	KindSessionExpired   Kind = "session_expired"
	KindRateLimited      Kind = "rate_limited"
	KindNotFound         Kind = "not_found"
	KindServer           Kind = "server_error"
	KindNetwork          Kind = "network_unavailable"
	KindTimeout          Kind = "timeout"
)

// Error is the typed error returned by every API call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []models.FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds a typed API error. Used by packages that need to surface
// a semantic kind without a network round trip (e.g. local rate limiting).
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError builds a validation error carrying all field violations.
func ValidationError(fields []models.FieldError) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: models.JoinFieldErrors(fields),
		Fields:  fields,
	}
}

// KindOf extracts the semantic kind from err, or "" if err is not an API
// error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given semantic kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the failure is transient from the client's
// perspective: the operation may succeed later without any caller change.
// These are the failures that degrade to a queued optimistic write.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindServer:
		return true
	}
	return false
}

var userMessages = map[Kind]string{
	KindValidation:       "Some fields are invalid. Please review and try again.",
	KindNotAuthenticated: "Invalid credentials. Please check your email and password.",
	KindSessionExpired:   "Your session has expired. Please log in again.",
	KindRateLimited:      "Too many attempts. Please wait before trying again.",
	KindNotFound:         "The requested record could not be found.",
	KindServer:           "The server reported an error. Please try again later.",
	KindNetwork:          "Network unavailable. Your changes will sync when you reconnect.",
	KindTimeout:          "The request timed out. Please try again.",
}

// UserMessage maps an error to user-facing display text. This is the only
// place semantic kinds become display strings.
func UserMessage(err error) string {
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
