// Package apperr defines the typed error taxonomy used across the core.
//
// Every failure crossing a package boundary is one of five kinds: the caller
// has no identity, the caller does not own the resource, a referenced record
// is missing, the input is invalid, or the external image function failed.
// Handlers map kinds to HTTP status codes; nothing below the handler layer
// knows about HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	// KindNotAuthenticated means no identity is present on the request.
	KindNotAuthenticated Kind = iota + 1
	// KindNotAuthorized means the identity does not own the resource.
	KindNotAuthorized
	// KindNotFound means a referenced record is absent.
	KindNotFound
	// KindValidation means the input is empty or out of range.
	KindValidation
	// KindExternalService means the image function failed or returned an
	// unusable result.
	KindExternalService
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// Error is a kind-carrying error. It wraps an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotAuthenticated returns a KindNotAuthenticated error.
func NotAuthenticated(message string) *Error {
	return &Error{Kind: KindNotAuthenticated, Message: message}
}

// NotAuthorized returns a KindNotAuthorized error.
func NotAuthorized(message string) *Error {
	return &Error{Kind: KindNotAuthorized, Message: message}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ExternalService returns a KindExternalService error wrapping the provider's
// failure so the original message survives to the caller.
func ExternalService(message string, cause error) *Error {
	return &Error{Kind: KindExternalService, Message: message, Err: cause}
}

// KindOf returns the kind of err, or 0 if err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
