// Package serrors defines semantic error kinds shared by controllers,
// middlewares and the adapter, and how each kind is reported to clients.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a semantic error category. Kinds are sentinels: compare them with
// errors.Is, extract them with errors.As.
type Kind interface {
	error
	// Status is the HTTP status reported for the kind, 0 when it has none.
	Status() int
	// Public is the client-safe message used when an error carries no message
	// of its own, or when its status is a server error.
	Public() string
}

type kind struct {
	name   string
	status int
	public string
}

func (k *kind) Error() string  { return k.name }
func (k *kind) Status() int    { return k.status }
func (k *kind) Public() string { return k.public }

// NewKind creates a kind reported with status and public message. A zero
// status leaves the kind unmapped: HTTPStatus ignores it.
func NewKind(name string, status int, public string) Kind {
	return &kind{name: name, status: status, public: public}
}

//nolint: gochecknoglobals
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = NewKind("NOT_FOUND", 404, "resource not found")
	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = NewKind("UNAUTHORIZED", 401, "unauthorized")
	// ErrForbidden indicates the caller is authenticated but not allowed.
	ErrForbidden = NewKind("FORBIDDEN", 403, "forbidden")
	// ErrBadRequest indicates the client sent invalid data.
	ErrBadRequest = NewKind("BAD_REQUEST", 400, "bad request")
	// ErrConflict indicates a state conflict.
	ErrConflict = NewKind("CONFLICT", 409, "conflict")
	ErrInternal = NewKind("INTERNAL", 500, "internal error")
	ErrTimeout  = NewKind("TIMEOUT", 504, "timeout")
	// ErrUnavailable indicates a dependency is temporarily unavailable.
	ErrUnavailable = NewKind("UNAVAILABLE", 503, "service unavailable")
	ErrRateLimited = NewKind("RATE_LIMITED", 429, "rate limited")
)

// Error is a semantic error: a kind, an optional message and an optional
// cause. errors.Is and errors.As match both the kind and the cause chain.
//
// Error() renders "<msg>: <cause>", "<msg>", "<cause>" or the kind name,
// depending on which parts are set.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With returns an error of kind k with a formatted message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap is With plus a cause.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly returns an error carrying just k.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the kind of e or matches its cause.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}

	return (e.kind != nil && errors.Is(e.kind, target)) || (e.err != nil && errors.Is(e.err, target))
}

// As extracts the kind of e, or a value from its cause chain.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}

	return (e.kind != nil && errors.As(e.kind, target)) || (e.err != nil && errors.As(e.err, target))
}

// Kind returns the kind of e, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached with With or Wrap.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause, or nil.
func (e *Error) Cause() error { return e.err }
