package repositories

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

// runChallengeStoreSuite exercises the behaviour every ChallengeStore backend shares.
func runChallengeStoreSuite(t *testing.T, newStore func(t *testing.T) ports.ChallengeStore) {
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	pending := func(email, token string) *challenge.Challenge {
		return &challenge.Challenge{
			Email:     email,
			Token:     token,
			ExpiresAt: base.Add(10 * time.Minute),
			CreatedAt: base,
		}
	}

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nobody@x.com")
		require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	})

	t.Run("put and get keep payload", func(t *testing.T) {
		s := newStore(t)
		c := pending("new@x.com", "ABC123")
		c.Payload = &account.RegistrationPayload{Name: "New", Email: "new@x.com", PasswordHash: "hash", Phone: "0771234567", Role: account.RoleCustomer}
		require.NoError(t, s.Put(ctx, c))

		got, err := s.Get(ctx, "new@x.com")
		require.NoError(t, err)
		assert.Equal(t, "ABC123", got.Token)
		assert.True(t, got.ExpiresAt.Equal(c.ExpiresAt))
		require.NotNil(t, got.Payload)
		assert.Equal(t, "hash", got.Payload.PasswordHash)
		assert.Equal(t, "0771234567", got.Payload.Phone)
	})

	t.Run("put supersedes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("a@x.com", "OLD111")))
		_, err := s.Consume(ctx, "a@x.com", "WRONG1", base, 5)
		require.ErrorIs(t, err, challenge.ErrInvalidCode)

		require.NoError(t, s.Put(ctx, pending("a@x.com", "NEW222")))
		got, err := s.Get(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "NEW222", got.Token)
		assert.Equal(t, 0, got.Attempts)

		_, err = s.Consume(ctx, "a@x.com", "OLD111", base, 5)
		require.ErrorIs(t, err, challenge.ErrInvalidCode)
		c, err := s.Consume(ctx, "a@x.com", "NEW222", base, 5)
		require.NoError(t, err)
		assert.Equal(t, "NEW222", c.Token)
	})

	t.Run("one-time use", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("once@x.com", "C0FFEE")))

		c, err := s.Consume(ctx, "once@x.com", "c0ffee", base.Add(time.Minute), 5)
		require.NoError(t, err)
		assert.Equal(t, "once@x.com", c.Email)

		_, err = s.Consume(ctx, "once@x.com", "C0FFEE", base.Add(time.Minute), 5)
		require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	})

	t.Run("expiry boundary", func(t *testing.T) {
		s := newStore(t)
		c := pending("edge@x.com", "EDGE01")
		require.NoError(t, s.Put(ctx, c))
		_, err := s.Consume(ctx, "edge@x.com", "EDGE01", c.ExpiresAt, 5)
		require.NoError(t, err, "the expiry instant is still valid")

		require.NoError(t, s.Put(ctx, c))
		_, err = s.Consume(ctx, "edge@x.com", "EDGE01", c.ExpiresAt.Add(time.Millisecond), 5)
		require.ErrorIs(t, err, challenge.ErrExpired)

		_, err = s.Get(ctx, "edge@x.com")
		require.ErrorIs(t, err, challenge.ErrNoPendingChallenge, "expired challenge is deleted on detection")
	})

	t.Run("mismatch retains until locked", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("guess@x.com", "RIGHT1")))

		for i := 1; i < 3; i++ {
			_, err := s.Consume(ctx, "guess@x.com", fmt.Sprintf("WRONG%d", i), base, 3)
			require.ErrorIs(t, err, challenge.ErrInvalidCode)
			got, err := s.Get(ctx, "guess@x.com")
			require.NoError(t, err)
			assert.Equal(t, i, got.Attempts)
		}

		_, err := s.Consume(ctx, "guess@x.com", "WRONG3", base, 3)
		require.ErrorIs(t, err, challenge.ErrAttemptsExceeded)
		_, err = s.Consume(ctx, "guess@x.com", "RIGHT1", base, 3)
		require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	})

	t.Run("unlimited attempts", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("many@x.com", "RIGHT2")))
		for i := 0; i < 10; i++ {
			_, err := s.Consume(ctx, "many@x.com", "NOPE00", base, 0)
			require.ErrorIs(t, err, challenge.ErrInvalidCode)
		}
		_, err := s.Consume(ctx, "many@x.com", "RIGHT2", base, 0)
		require.NoError(t, err)
	})

	t.Run("emails are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("a@x.com", "AAAAAA")))
		require.NoError(t, s.Put(ctx, pending("b@x.com", "BBBBBB")))

		_, err := s.Consume(ctx, "a@x.com", "BBBBBB", base, 5)
		require.ErrorIs(t, err, challenge.ErrInvalidCode)
		require.NoError(t, s.Delete(ctx, "a@x.com"))

		got, err := s.Get(ctx, "b@x.com")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Attempts)
		_, err = s.Consume(ctx, "b@x.com", "BBBBBB", base, 5)
		require.NoError(t, err)
	})

	t.Run("blank code spends no attempt", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("blank@x.com", "RIGHT3")))
		for i := 0; i < 5; i++ {
			_, err := s.Consume(ctx, "blank@x.com", "    ", base, 3)
			require.ErrorIs(t, err, challenge.ErrInvalidCode)
		}
		got, err := s.Get(ctx, "blank@x.com")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Attempts)
		_, err = s.Consume(ctx, "blank@x.com", "RIGHT3", base, 3)
		require.NoError(t, err)
	})

	t.Run("restore only fills an empty slot", func(t *testing.T) {
		s := newStore(t)
		consumed := pending("back@x.com", "OLD333")
		consumed.Payload = &account.RegistrationPayload{Name: "First", Email: "back@x.com", PasswordHash: "hash", Role: account.RoleCustomer}

		ok, err := s.Restore(ctx, consumed)
		require.NoError(t, err)
		assert.True(t, ok)
		got, err := s.Get(ctx, "back@x.com")
		require.NoError(t, err)
		assert.Equal(t, "OLD333", got.Token)
		require.NotNil(t, got.Payload)
		assert.Equal(t, "First", got.Payload.Name)

		require.NoError(t, s.Put(ctx, pending("back@x.com", "NEW444")))
		ok, err = s.Restore(ctx, consumed)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err = s.Get(ctx, "back@x.com")
		require.NoError(t, err)
		assert.Equal(t, "NEW444", got.Token)
		assert.Nil(t, got.Payload)
	})

	t.Run("delete absent is not an error", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Delete(ctx, "ghost@x.com"))
	})

	t.Run("sweep keeps live challenges", func(t *testing.T) {
		s := newStore(t)
		live := pending("live@x.com", "LIVE01")
		stale := pending("stale@x.com", "STALE1")
		stale.ExpiresAt = base.Add(time.Minute)
		require.NoError(t, s.Put(ctx, live))
		require.NoError(t, s.Put(ctx, stale))

		_, err := s.DeleteExpired(ctx, base.Add(5*time.Minute))
		require.NoError(t, err)

		_, err = s.Get(ctx, "live@x.com")
		require.NoError(t, err)
		_, err = s.Consume(ctx, "stale@x.com", "STALE1", base.Add(5*time.Minute), 5)
		require.Error(t, err)
	})

	t.Run("concurrent consume succeeds once", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, pending("race@x.com", "RACE01")))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Consume(ctx, "race@x.com", "RACE01", base, 5); err == nil {
					wins.Add(1)
				} else {
					assert.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}
