// Package errs defines the core error taxonomy shared by every package in
// this module. Stage runners and repositories return one of these kinds
// wrapped around the underlying cause; callers classify with errors.Is
// against the Kind sentinels and unwrap with errors.Unwrap for the cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for dispatch at the HTTP edge and inside the
// pipeline executor's retry logic.
type Kind string

const (
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	Validation      Kind = "validation"
	PermissionDenied Kind = "permission_denied"
	QuotaExceeded   Kind = "quota_exceeded"
	AuthExpired     Kind = "auth_expired"
	AuthRevoked     Kind = "auth_revoked"
	Transient       Kind = "transient"
	StagePermanent  Kind = "stage_permanent"
	Cancelled       Kind = "cancelled"
	Internal        Kind = "internal"
)

// kindSentinel lets errors.Is(err, errs.NotFoundErr) work without comparing
// wrapped messages.
type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return string(k.kind) }

var sentinels = map[Kind]error{
	NotFound:         kindSentinel{NotFound},
	Conflict:         kindSentinel{Conflict},
	Validation:       kindSentinel{Validation},
	PermissionDenied: kindSentinel{PermissionDenied},
	QuotaExceeded:    kindSentinel{QuotaExceeded},
	AuthExpired:      kindSentinel{AuthExpired},
	AuthRevoked:      kindSentinel{AuthRevoked},
	Transient:        kindSentinel{Transient},
	StagePermanent:   kindSentinel{StagePermanent},
	Cancelled:        kindSentinel{Cancelled},
	Internal:         kindSentinel{Internal},
}

// Error wraps a Kind, a human message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, errs.NotFoundErr) etc. work against *Error values.
func (e *Error) Is(target error) bool {
	if sent, ok := target.(kindSentinel); ok {
		return e.Kind == sent.kind
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel returns the comparable sentinel error for a Kind, for use with
// errors.Is(err, errs.Sentinel(errs.NotFound)).
func Sentinel(k Kind) error { return sentinels[k] }

// KindOf extracts the Kind carried by err, defaulting to Internal when err
// does not wrap one of ours.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is is shorthand for errors.Is(err, errs.Sentinel(k)).
func Is(err error, k Kind) bool {
	return errors.Is(err, Sentinel(k))
}

var (
	NotFoundErr         = Sentinel(NotFound)
	ConflictErr         = Sentinel(Conflict)
	ValidationErr       = Sentinel(Validation)
	PermissionDeniedErr = Sentinel(PermissionDenied)
	QuotaExceededErr    = Sentinel(QuotaExceeded)
	AuthExpiredErr      = Sentinel(AuthExpired)
	AuthRevokedErr      = Sentinel(AuthRevoked)
	TransientErr        = Sentinel(Transient)
	StagePermanentErr   = Sentinel(StagePermanent)
	CancelledErr        = Sentinel(Cancelled)
	InternalErr         = Sentinel(Internal)
)
