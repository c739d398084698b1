package ports

import (
	"context"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
)

// ChallengeStore keeps at most one pending challenge per email.
// Implementations MUST be safe for concurrent use and write each record atomically,
// so a reader never observes a token from one Put with the expiry of another.
type ChallengeStore interface {
	// Put replaces any existing challenge for c.Email (last writer wins).
	Put(ctx context.Context, c *challenge.Challenge) error
	// Restore inserts c only if no challenge is stored for c.Email, so a record
	// put back after a failed verification never replaces a newer one.
	// It reports whether c was written.
	Restore(ctx context.Context, c *challenge.Challenge) (bool, error)
	// Get returns challenge.ErrNoPendingChallenge when nothing is stored. Expiry is not filtered.
	Get(ctx context.Context, email string) (*challenge.Challenge, error)
	// Delete removes the challenge; absence is not an error.
	Delete(ctx context.Context, email string) error
	// Consume atomically evaluates code against the stored challenge. On a match the
	// record is deleted and returned. Expired and locked records are deleted; a
	// mismatch is retained with its attempt counter incremented.
	Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error)
	// DeleteExpired purges records whose window closed before now. Hygiene only.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// TokenGenerator produces human-typable one-time codes.
type TokenGenerator interface {
	Generate() (string, error)
}

// Clock is the single source of "now" shared by stores and verifiers.
type Clock interface {
	Now() time.Time
}
