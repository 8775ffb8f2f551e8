// Package apperr is the typed error taxonomy shared by every layer that can
// fail a request — tenant resolution, the DAL, and the safe-action wrapper —
// so a single switch in safeaction maps all of them to the canonical
// client-facing strings in spec.md §7. Nothing below the wrapper may leak a
// raw storage or provider error past a Kind.
package apperr

import "errors"

type Kind int

const (
	_ Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Validation
	RateLimited
	Demo
	Conflict
	Internal
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case Forbidden:
		return "FORBIDDEN"
	case NotFound:
		return "NOT_FOUND"
	case Validation:
		return "VALIDATION"
	case RateLimited:
		return "RATE_LIMITED"
	case Demo:
		return "DEMO"
	case Conflict:
		return "CONFLICT"
	case Internal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed failure carrying a Kind for client-string mapping and a
// Msg for logs only — safeaction never returns Msg verbatim.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Unauthenticatedf(msg string) error { return &Error{Kind: Unauthenticated, Msg: msg} }
func Forbiddenf(msg string) error       { return &Error{Kind: Forbidden, Msg: msg} }
func NotFoundf(msg string) error        { return &Error{Kind: NotFound, Msg: msg} }
func Conflictf(msg string) error        { return &Error{Kind: Conflict, Msg: msg} }
func Internalf(msg string) error        { return &Error{Kind: Internal, Msg: msg} }

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
