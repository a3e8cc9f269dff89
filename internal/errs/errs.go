// Package errs defines the error taxonomy shared by the session manager,
// the conversation store, and the HTTP surface. Every failure a handler can
// surface to a user belongs to exactly one Kind, which the handlers map to an
// HTTP status and the i18n catalog maps to a readable notice.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindAuth covers bad credentials and duplicate registrations.
	KindAuth Kind = iota
	// KindValidation covers malformed input: short names, bad email shapes,
	// mismatched passwords, self-contact attempts.
	KindValidation
	// KindNotFound covers unknown users, requests, and groups.
	KindNotFound
	// KindConflict covers duplicate contacts, requests, and memberships.
	KindConflict
	// KindAuthorization covers actors lacking permission for a mutation.
	KindAuthorization
	// KindRemote covers opaque store failures not otherwise classified.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	default:
		return "remote"
	}
}

// Error is a categorized error. Msg is a terse machine-stable key suitable
// for the i18n notice catalog; Err optionally wraps an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match any error of the same kind, so callers can test
// categories without holding the exact instance.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
	}
	return false
}

func Auth(msg string) error          { return &Error{Kind: KindAuth, Msg: msg} }
func Validation(msg string) error    { return &Error{Kind: KindValidation, Msg: msg} }
func NotFound(msg string) error      { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error      { return &Error{Kind: KindConflict, Msg: msg} }
func Authorization(msg string) error { return &Error{Kind: KindAuthorization, Msg: msg} }

// Remote wraps an opaque store failure so it still carries a stable key.
func Remote(msg string, err error) error {
	return &Error{Kind: KindRemote, Msg: msg, Err: err}
}

// KindOf reports the category of err, or KindRemote for uncategorized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}

// IsKind reports whether err belongs to the given category.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
