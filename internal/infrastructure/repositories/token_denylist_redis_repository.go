package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

const denylistPrefix = "app:session_denylist"

// TokenDenylistRedisRepository stores revoked session ids until the session
// would have expired anyway.
type TokenDenylistRedisRepository struct {
	r      redis.Cmdable
	clock  ports.Clock
	logger *logrus.Logger
}

var _ ports.TokenDenylist = (*TokenDenylistRedisRepository)(nil)

// NewTokenDenylistRedisRepository measures remaining session lifetime against
// clock, which must be the clock the sessions were minted with.
func NewTokenDenylistRedisRepository(r redis.Cmdable, clock ports.Clock, logger *logrus.Logger) *TokenDenylistRedisRepository {
	return &TokenDenylistRedisRepository{r: r, clock: clock, logger: logger}
}

func (d *TokenDenylistRedisRepository) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.clock.Now())
	if ttl <= 0 {
		// already unusable
		return nil
	}
	if err := d.r.Set(ctx, denylistPrefix+":"+jti, 1, ttl).Err(); err != nil {
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"jti": jti}).WithError(err).Error("redis: failed to deny session")
		}
		return fmt.Errorf("failed to deny session: %w", err)
	}
	return nil
}

func (d *TokenDenylistRedisRepository) IsDenied(ctx context.Context, jti string) (bool, error) {
	n, err := d.r.Exists(ctx, denylistPrefix+":"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session denylist: %w", err)
	}
	return n > 0, nil
}
