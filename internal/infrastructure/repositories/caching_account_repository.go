package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
)

func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// cachedAccount carries the password hash, which account.Account hides from JSON.
type cachedAccount struct {
	ID            uuid.UUID    `json:"id"`
	Email         string       `json:"email"`
	Name          string       `json:"name"`
	PasswordHash  string       `json:"password_hash"`
	Phone         string       `json:"phone"`
	Address       string       `json:"address"`
	Role          account.Role `json:"role"`
	EmailVerified bool         `json:"email_verified"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func toCached(a *account.Account) cachedAccount {
	return cachedAccount(*a)
}

func (c *cachedAccount) account() *account.Account {
	a := account.Account(*c)
	return &a
}

// CachingAccountRepository caches positive email lookups only, so a freshly
// registered email is never hidden behind a cached miss.
type CachingAccountRepository struct {
	inner ports.AccountRepository
	cache ports.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewCachingAccountRepository(inner ports.AccountRepository, cache ports.Cache, ttl time.Duration) ports.AccountRepository {
	return &CachingAccountRepository{inner: inner, cache: cache, ttl: ttl}
}

func accountEmailKey(email string) string {
	return "account:email:" + email
}

func (c *CachingAccountRepository) Create(ctx context.Context, a *account.Account) error {
	if err := c.inner.Create(ctx, a); err != nil {
		return err
	}
	cacheSetSilently(c.cache, ctx, accountEmailKey(a.Email), toCached(a), c.ttl)
	return nil
}

func (c *CachingAccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	if v, ok := cacheGet[cachedAccount](c.cache, ctx, accountEmailKey(email)); ok {
		return v.account(), nil
	}
	res, err, _ := c.sf.Do(email, func() (any, error) {
		a, err := c.inner.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, accountEmailKey(email), toCached(a), c.ttl)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	// copy so concurrent callers sharing a flight don't share a pointer
	a := *res.(*account.Account)
	return &a, nil
}

func (c *CachingAccountRepository) Exists(ctx context.Context, email string) (bool, error) {
	if _, ok := cacheGet[cachedAccount](c.cache, ctx, accountEmailKey(email)); ok {
		return true, nil
	}
	return c.inner.Exists(ctx, email)
}
