package challenge

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
)

// Purpose identifies which flow a one-time code belongs to.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
	// PurposeWelcome is only used for notifications sent after a registration completes.
	PurposeWelcome Purpose = "welcome"
)

func (p Purpose) String() string {
	return string(p)
}

// IsValid reports whether p names a flow that owns a pending challenge.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeRegistration, PurposeLogin:
		return true
	default:
		return false
	}
}

// Challenge is an outstanding verification requirement for one email.
type Challenge struct {
	Email     string                       `json:"email"`
	Token     string                       `json:"token"`
	Payload   *account.RegistrationPayload `json:"payload,omitempty"`
	Attempts  int                          `json:"attempts"`
	ExpiresAt time.Time                    `json:"expires_at"`
	CreatedAt time.Time                    `json:"created_at"`
}

// IsExpired reports whether the challenge window has elapsed. The boundary
// instant itself is still valid.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Matches compares a submitted code against the stored token in constant time.
func (c *Challenge) Matches(code string) bool {
	return TokensEqual(c.Token, code)
}

func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Payload != nil {
		p := *c.Payload
		cp.Payload = &p
	}
	return &cp
}

// Verdict is the outcome of checking a code against a challenge.
type Verdict int

const (
	VerdictMatch Verdict = iota
	VerdictExpired
	VerdictMismatch
	VerdictLocked
)

// Evaluate applies the verification state machine to c. A mismatch increments
// Attempts; once maxAttempts is reached the verdict is VerdictLocked. A
// maxAttempts of zero disables the limit. A blank code is a mismatch that does
// not count as an attempt.
func (c *Challenge) Evaluate(code string, now time.Time, maxAttempts int) Verdict {
	if c.IsExpired(now) {
		return VerdictExpired
	}
	if NormalizeCode(code) == "" {
		return VerdictMismatch
	}
	if c.Matches(code) {
		return VerdictMatch
	}
	c.Attempts++
	if maxAttempts > 0 && c.Attempts >= maxAttempts {
		return VerdictLocked
	}
	return VerdictMismatch
}

// Err converts a non-match verdict into the matching domain error.
func (v Verdict) Err() error {
	switch v {
	case VerdictExpired:
		return ErrExpired
	case VerdictMismatch:
		return ErrInvalidCode
	case VerdictLocked:
		return ErrAttemptsExceeded
	default:
		return nil
	}
}

// NormalizeCode upper-cases and trims user-typed codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func TokensEqual(stored, submitted string) bool {
	a := NormalizeCode(stored)
	b := NormalizeCode(submitted)
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
