// Package apperr defines the error kinds surfaced by the poll services to the HTTP layer.
package apperr

import "errors"

// Kind classifies an application error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindAuthorization
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is an application error with a user-visible reason.
type Error struct {
	Kind   Kind
	Reason string
	// Unauthenticated is set on authorization errors raised for anonymous callers.
	Unauthenticated bool
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Reason
}

// Validation returns a ValidationError.
func Validation(reason string) error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// NotFound returns a NotFoundError.
func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// Forbidden returns an AuthorizationError for an authenticated caller.
func Forbidden(reason string) error {
	return &Error{Kind: KindAuthorization, Reason: reason}
}

// Unauthenticated returns an AuthorizationError for an anonymous caller.
func Unauthenticated(reason string) error {
	return &Error{Kind: KindAuthorization, Reason: reason, Unauthenticated: true}
}

// Conflict returns a ConflictError.
func Conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries an application error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
