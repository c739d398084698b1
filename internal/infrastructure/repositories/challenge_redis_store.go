package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

const (
	fieldToken     = "token"
	fieldPayload   = "payload"
	fieldAttempts  = "attempts"
	fieldExpiresAt = "expires_at_ms"
	fieldCreatedAt = "created_at_ms"
)

// consumeChallengeLua evaluates a submitted code against the challenge hash in one step.
// KEYS[1] = challenge key
// ARGV[1] = normalised submitted code
// ARGV[2] = now, unix milliseconds
// ARGV[3] = max attempts, 0 for unlimited
//
// Returns the flattened hash on a match after deleting it, or an error reply of
// not_found, expired, invalid_code or attempts_exceeded. A blank code is
// rejected without counting an attempt.
var consumeChallengeLua = redis.NewScript(`
local exp = redis.call('HGET', KEYS[1], 'expires_at_ms')
if not exp then
  return {err='not_found'}
end

if tonumber(ARGV[2]) > tonumber(exp) then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if ARGV[1] == '' then
  return {err='invalid_code'}
end

local token = redis.call('HGET', KEYS[1], 'token')
if token ~= ARGV[1] then
  local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
  local maxAttempts = tonumber(ARGV[3])
  if maxAttempts > 0 and attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  return {err='invalid_code'}
end

local data = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
return data
`)

// restoreChallengeLua writes the hash only when the key is absent.
// KEYS[1] = challenge key
// ARGV[1] = key expiry, unix milliseconds
// ARGV[2..] = field/value pairs
var restoreChallengeLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PEXPIREAT', KEYS[1], ARGV[1])
return 1
`)

// ChallengeRedisStore keeps each challenge in one hash. The key expires a grace
// period after the challenge itself, so redis does the sweeping while reads still
// report Expired for a short while instead of NoPendingChallenge.
type ChallengeRedisStore struct {
	r      redis.Cmdable
	prefix string
	grace  time.Duration
}

var _ ports.ChallengeStore = (*ChallengeRedisStore)(nil)

func NewChallengeRedisStore(r redis.Cmdable, prefix string, grace time.Duration) *ChallengeRedisStore {
	if prefix == "" {
		prefix = "app:challenge"
	}
	if grace < 0 {
		grace = 0
	}
	return &ChallengeRedisStore{r: r, prefix: prefix, grace: grace}
}

func (s *ChallengeRedisStore) key(email string) string {
	return s.prefix + ":" + email
}

func challengeFields(c *challenge.Challenge) (map[string]interface{}, error) {
	fields := map[string]interface{}{
		fieldToken:     challenge.NormalizeCode(c.Token),
		fieldAttempts:  c.Attempts,
		fieldExpiresAt: c.ExpiresAt.UnixMilli(),
		fieldCreatedAt: c.CreatedAt.UnixMilli(),
	}
	if c.Payload != nil {
		b, err := json.Marshal(c.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal challenge payload: %w", err)
		}
		fields[fieldPayload] = b
	}
	return fields, nil
}

func (s *ChallengeRedisStore) Put(ctx context.Context, c *challenge.Challenge) error {
	fields, err := challengeFields(c)
	if err != nil {
		return err
	}

	key := s.key(c.Email)
	// DEL first so a superseding put never inherits fields of the old record
	pipe := s.r.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.PExpireAt(ctx, key, c.ExpiresAt.Add(s.grace))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store challenge in redis: %w", err)
	}
	return nil
}

func (s *ChallengeRedisStore) Restore(ctx context.Context, c *challenge.Challenge) (bool, error) {
	fields, err := challengeFields(c)
	if err != nil {
		return false, err
	}
	args := make([]interface{}, 0, 1+2*len(fields))
	args = append(args, c.ExpiresAt.Add(s.grace).UnixMilli())
	for k, v := range fields {
		args = append(args, k, v)
	}

	n, err := restoreChallengeLua.Run(ctx, s.r, []string{s.key(c.Email)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("failed to restore challenge in redis: %w", err)
	}
	return n == 1, nil
}

func (s *ChallengeRedisStore) Get(ctx context.Context, email string) (*challenge.Challenge, error) {
	fields, err := s.r.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, challenge.ErrNoPendingChallenge
	}
	return decodeChallengeHash(email, fields)
}

func (s *ChallengeRedisStore) Delete(ctx context.Context, email string) error {
	if err := s.r.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge from redis: %w", err)
	}
	return nil
}

func (s *ChallengeRedisStore) Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error) {
	submitted := challenge.NormalizeCode(code)

	res, err := consumeChallengeLua.Run(ctx, s.r,
		[]string{s.key(email)},
		submitted,
		now.UnixMilli(),
		maxAttempts,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, challenge.ErrNoPendingChallenge
		case "expired":
			return nil, challenge.ErrExpired
		case "invalid_code":
			return nil, challenge.ErrInvalidCode
		case "attempts_exceeded":
			return nil, challenge.ErrAttemptsExceeded
		default:
			return nil, fmt.Errorf("failed to consume challenge in redis: %w", err)
		}
	}

	flat, ok := res.([]interface{})
	if !ok || len(flat)%2 != 0 {
		return nil, fmt.Errorf("unexpected consume result type %T", res)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}

	c, err := decodeChallengeHash(email, fields)
	if err != nil {
		return nil, err
	}
	// Lua string equality is not constant time; confirm in Go before trusting it
	if !c.Matches(submitted) {
		return nil, challenge.ErrInvalidCode
	}
	return c, nil
}

// DeleteExpired is a no-op: key expiry does the sweeping.
func (s *ChallengeRedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func decodeChallengeHash(email string, fields map[string]string) (*challenge.Challenge, error) {
	c := &challenge.Challenge{Email: email, Token: fields[fieldToken]}

	expMs, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge expiry for %s: %w", email, err)
	}
	c.ExpiresAt = time.UnixMilli(expMs).UTC()

	if v, ok := fields[fieldCreatedAt]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.CreatedAt = time.UnixMilli(ms).UTC()
		}
	}
	if v, ok := fields[fieldAttempts]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Attempts = n
		}
	}
	if raw, ok := fields[fieldPayload]; ok && raw != "" {
		var p account.RegistrationPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("corrupt challenge payload for %s: %w", email, err)
		}
		c.Payload = &p
	}
	if c.Token == "" {
		return nil, errors.New("corrupt challenge: empty token")
	}
	return c, nil
}
