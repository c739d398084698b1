package challenge

import "errors"

// Kind classifies user-recoverable verification failures.
type Kind string

const (
	KindAlreadyExists      Kind = "already_exists"
	KindNoPendingChallenge Kind = "no_pending_challenge"
	KindExpired            Kind = "expired"
	KindInvalidCode        Kind = "invalid_code"
	KindAttemptsExceeded   Kind = "attempts_exceeded"
	KindRateLimited        Kind = "rate_limited"
	KindAccountNotFound    Kind = "account_not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
)

// Error is returned for every expected, user-actionable condition. Anything
// else coming out of the verification flows is an infrastructure failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Expired lets callers tell "start over" apart from "wrong code".
func (e *Error) Expired() bool {
	return e.Kind == KindExpired
}

// Is matches on kind so wrapped or re-created errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists, Message: "an account with this email already exists"}
	ErrNoPendingChallenge = &Error{Kind: KindNoPendingChallenge, Message: "no pending verification for this email"}
	ErrExpired            = &Error{Kind: KindExpired, Message: "verification code has expired, please start over"}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode, Message: "invalid verification code"}
	ErrAttemptsExceeded   = &Error{Kind: KindAttemptsExceeded, Message: "too many invalid attempts, please request a new code"}
	ErrRateLimited        = &Error{Kind: KindRateLimited, Message: "too many verification requests, please try again later"}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound, Message: "no account found for this email"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
)

// KindOf returns the kind of a domain error, or false for infrastructure errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
