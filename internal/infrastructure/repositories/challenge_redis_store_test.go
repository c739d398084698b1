package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestChallengeRedisStore(t *testing.T) {
	runChallengeStoreSuite(t, func(t *testing.T) ports.ChallengeStore {
		_, client := newTestRedis(t)
		return NewChallengeRedisStore(client, "test:challenge:registration", time.Minute)
	})
}

func TestChallengeRedisStore_KeyExpiresAfterGrace(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewChallengeRedisStore(client, "test:challenge:login", time.Minute)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Put(ctx, &challenge.Challenge{Email: "a@x.com", Token: "ABCDEF", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}))
	require.True(t, mr.Exists("test:challenge:login:a@x.com"))

	ttl := mr.TTL("test:challenge:login:a@x.com")
	assert.Greater(t, ttl, 10*time.Minute)
	assert.LessOrEqual(t, ttl, 11*time.Minute)

	mr.FastForward(12 * time.Minute)
	_, err := s.Get(ctx, "a@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
}

func TestChallengeRedisStore_PrefixesSeparatePurposes(t *testing.T) {
	_, client := newTestRedis(t)
	reg := NewChallengeRedisStore(client, "app:challenge:registration", 0)
	login := NewChallengeRedisStore(client, "app:challenge:login", 0)
	ctx := context.Background()
	exp := time.Now().Add(time.Minute)

	require.NoError(t, reg.Put(ctx, &challenge.Challenge{Email: "a@x.com", Token: "REG001", ExpiresAt: exp}))
	require.NoError(t, login.Put(ctx, &challenge.Challenge{Email: "a@x.com", Token: "LOG001", ExpiresAt: exp}))

	_, err := login.Consume(ctx, "a@x.com", "REG001", time.Now(), 5)
	require.ErrorIs(t, err, challenge.ErrInvalidCode)
	_, err = reg.Consume(ctx, "a@x.com", "REG001", time.Now(), 5)
	require.NoError(t, err)
}

func TestChallengeRedisStore_RedisDown(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewChallengeRedisStore(client, "", 0)
	require.NoError(t, client.Close())

	_, err := s.Consume(context.Background(), "a@x.com", "ABCDEF", time.Now(), 5)
	require.Error(t, err)
	_, isDomain := challenge.KindOf(err)
	assert.False(t, isDomain, "transport failures are not user errors")
}
