package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/test/mocks"
)

func TestRateLimitRedisRepository_FixedWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRateLimitRedisRepository(client)
	fixed := time.Date(2026, 3, 1, 10, 7, 30, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, start, err := repo.IncrementWindow(ctx, "rl:registration:a@x.com", 15*time.Minute, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), start.UTC())
	}

	n, _, err := repo.IncrementWindow(ctx, "rl:registration:b@x.com", 15*time.Minute, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "keys are counted independently")

	repo.now = func() time.Time { return fixed.Add(15 * time.Minute) }
	n, _, err = repo.IncrementWindow(ctx, "rl:registration:a@x.com", 15*time.Minute, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a new window starts from zero")

	assert.Len(t, mr.Keys(), 3)
}

func TestTokenDenylistRedisRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	now := time.Now()
	d := NewTokenDenylistRedisRepository(client, mocks.NewFakeClock(now), nil)
	ctx := context.Background()

	denied, err := d.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)

	require.NoError(t, d.Deny(ctx, "jti-1", now.Add(time.Hour)))
	denied, err = d.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, denied)

	require.NoError(t, d.Deny(ctx, "jti-old", now.Add(-time.Minute)))
	denied, err = d.IsDenied(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, denied, "already expired sessions need no entry")

	mr.FastForward(2 * time.Hour)
	denied, err = d.IsDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)
}

func TestTokenDenylistRedisRepository_TTLFollowsInjectedClock(t *testing.T) {
	mr, client := newTestRedis(t)
	// the service clock runs an hour behind the wall clock
	clock := mocks.NewFakeClock(time.Now().Add(-time.Hour))
	d := NewTokenDenylistRedisRepository(client, clock, nil)
	ctx := context.Background()

	exp := clock.Now().Add(30 * time.Minute)
	require.NoError(t, d.Deny(ctx, "jti-skew", exp))
	assert.InDelta(t, (30 * time.Minute).Seconds(), mr.TTL(denylistPrefix+":jti-skew").Seconds(), 1)

	clock.Advance(31 * time.Minute)
	require.NoError(t, d.Deny(ctx, "jti-late", exp))
	assert.False(t, mr.Exists(denylistPrefix+":jti-late"), "expired by the injected clock")
}
