package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/db"
)

type challengeRow struct {
	Email     string    `db:"email"`
	Token     string    `db:"token"`
	Payload   []byte    `db:"payload"`
	Attempts  int       `db:"attempts"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *challengeRow) toChallenge() (*challenge.Challenge, error) {
	c := &challenge.Challenge{
		Email:     r.Email,
		Token:     r.Token,
		Attempts:  r.Attempts,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Payload) > 0 {
		var p account.RegistrationPayload
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal challenge payload: %w", err)
		}
		c.Payload = &p
	}
	return c, nil
}

// ChallengePostgresStore is the durable backend. One table serves every purpose;
// rows are keyed by (purpose, email).
type ChallengePostgresStore struct {
	db      *db.Database
	purpose challenge.Purpose
	logger  *logrus.Logger
}

func NewChallengePostgresStore(database *db.Database, purpose challenge.Purpose, logger *logrus.Logger) ports.ChallengeStore {
	return &ChallengePostgresStore{db: database, purpose: purpose, logger: logger}
}

const challengeColumns = `email, token, payload, attempts, expires_at, created_at`

func marshalPayload(c *challenge.Challenge) ([]byte, error) {
	if c.Payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(c.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal challenge payload: %w", err)
	}
	return b, nil
}

func (s *ChallengePostgresStore) Put(ctx context.Context, c *challenge.Challenge) error {
	payload, err := marshalPayload(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pending_challenges (purpose, email, token, payload, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (purpose, email) DO UPDATE SET
			token = EXCLUDED.token,
			payload = EXCLUDED.payload,
			attempts = EXCLUDED.attempts,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`

	_, err = s.db.DB.ExecContext(ctx, query,
		s.purpose, c.Email, challenge.NormalizeCode(c.Token), payload, c.Attempts, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": c.Email, "purpose": s.purpose}).WithError(err).Error("db: failed to store challenge")
		}
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *ChallengePostgresStore) Restore(ctx context.Context, c *challenge.Challenge) (bool, error) {
	payload, err := marshalPayload(c)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO pending_challenges (purpose, email, token, payload, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (purpose, email) DO NOTHING`

	res, err := s.db.DB.ExecContext(ctx, query,
		s.purpose, c.Email, challenge.NormalizeCode(c.Token), payload, c.Attempts, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to restore challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read restored rows: %w", err)
	}
	return n == 1, nil
}

func (s *ChallengePostgresStore) Get(ctx context.Context, email string) (*challenge.Challenge, error) {
	var row challengeRow
	query := `SELECT ` + challengeColumns + ` FROM pending_challenges WHERE purpose = $1 AND email = $2`

	if err := s.db.DB.GetContext(ctx, &row, query, s.purpose, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, challenge.ErrNoPendingChallenge
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return row.toChallenge()
}

func (s *ChallengePostgresStore) Delete(ctx context.Context, email string) error {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM pending_challenges WHERE purpose = $1 AND email = $2`, s.purpose, email)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// Consume locks the row for the duration of the check so concurrent submissions
// for one email serialise; other emails are unaffected.
func (s *ChallengePostgresStore) Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error) {
	var (
		consumed *challenge.Challenge
		outcome  error
	)

	err := s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		var row challengeRow
		query := `SELECT ` + challengeColumns + ` FROM pending_challenges WHERE purpose = $1 AND email = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, query, s.purpose, email); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome = challenge.ErrNoPendingChallenge
				return nil
			}
			return fmt.Errorf("failed to lock challenge: %w", err)
		}

		c, err := row.toChallenge()
		if err != nil {
			return err
		}

		verdict := c.Evaluate(code, now, maxAttempts)
		if verdict == challenge.VerdictMismatch {
			if c.Attempts == row.Attempts {
				outcome = verdict.Err()
				return nil
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE pending_challenges SET attempts = $3 WHERE purpose = $1 AND email = $2`,
				s.purpose, email, c.Attempts); err != nil {
				return fmt.Errorf("failed to record failed attempt: %w", err)
			}
			outcome = verdict.Err()
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_challenges WHERE purpose = $1 AND email = $2`, s.purpose, email); err != nil {
			return fmt.Errorf("failed to delete challenge: %w", err)
		}
		if verdict == challenge.VerdictMatch {
			consumed = c
			return nil
		}
		outcome = verdict.Err()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return consumed, nil
}

func (s *ChallengePostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM pending_challenges WHERE purpose = $1 AND expires_at < $2`, s.purpose, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired challenges: %w", err)
	}
	return int(n), nil
}
