package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// AccountRepositoryMock is an in-memory AccountRepository. Fn fields override
// the default map-backed behaviour when set.
type AccountRepositoryMock struct {
	FindByEmailFn func(ctx context.Context, email string) (*account.Account, error)
	ExistsFn      func(ctx context.Context, email string) (bool, error)
	CreateFn      func(ctx context.Context, a *account.Account) error

	mu       sync.Mutex
	accounts map[string]*account.Account
	creates  int
}

func NewAccountRepositoryMock(seed ...*account.Account) *AccountRepositoryMock {
	m := &AccountRepositoryMock{accounts: make(map[string]*account.Account)}
	for _, a := range seed {
		m.accounts[a.Email] = a
	}
	return m
}

func (m *AccountRepositoryMock) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	if m.FindByEmailFn != nil {
		return m.FindByEmailFn(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return nil, fmt.Errorf("find %s: %w", email, account.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *AccountRepositoryMock) Exists(ctx context.Context, email string) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[email]
	return ok, nil
}

func (m *AccountRepositoryMock) Create(ctx context.Context, a *account.Account) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts == nil {
		m.accounts = make(map[string]*account.Account)
	}
	if _, ok := m.accounts[a.Email]; ok {
		return account.ErrEmailTaken
	}
	cp := *a
	m.accounts[a.Email] = &cp
	m.creates++
	return nil
}

// Creates counts successful map-backed Create calls.
func (m *AccountRepositoryMock) Creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// ChallengeStoreMock is a lightweight mock for ChallengeStore
type ChallengeStoreMock struct {
	PutFn           func(ctx context.Context, c *challenge.Challenge) error
	RestoreFn       func(ctx context.Context, c *challenge.Challenge) (bool, error)
	GetFn           func(ctx context.Context, email string) (*challenge.Challenge, error)
	DeleteFn        func(ctx context.Context, email string) error
	ConsumeFn       func(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error)
	DeleteExpiredFn func(ctx context.Context, now time.Time) (int, error)
}

func (m *ChallengeStoreMock) Put(ctx context.Context, c *challenge.Challenge) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, c)
	}
	return nil
}
func (m *ChallengeStoreMock) Restore(ctx context.Context, c *challenge.Challenge) (bool, error) {
	if m.RestoreFn != nil {
		return m.RestoreFn(ctx, c)
	}
	return true, nil
}
func (m *ChallengeStoreMock) Get(ctx context.Context, email string) (*challenge.Challenge, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, email)
	}
	return nil, challenge.ErrNoPendingChallenge
}
func (m *ChallengeStoreMock) Delete(ctx context.Context, email string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, email)
	}
	return nil
}
func (m *ChallengeStoreMock) Consume(ctx context.Context, email, code string, now time.Time, maxAttempts int) (*challenge.Challenge, error) {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, email, code, now, maxAttempts)
	}
	return nil, challenge.ErrNoPendingChallenge
}
func (m *ChallengeStoreMock) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if m.DeleteExpiredFn != nil {
		return m.DeleteExpiredFn(ctx, now)
	}
	return 0, nil
}

// NotificationQueueMock records every enqueued notification synchronously.
type NotificationQueueMock struct {
	Reject bool

	mu   sync.Mutex
	sent []ports.Notification
}

func (m *NotificationQueueMock) Enqueue(n ports.Notification) bool {
	if m.Reject {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return true
}

func (m *NotificationQueueMock) Sent() []ports.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent notification for email and purpose.
func (m *NotificationQueueMock) Last(email string, purpose challenge.Purpose) (ports.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Email == email && m.sent[i].Purpose == purpose {
			return m.sent[i], true
		}
	}
	return ports.Notification{}, false
}

// NotifierMock is a testify mock for Notifier
type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Deliver(ctx context.Context, email, token string, purpose challenge.Purpose) error {
	args := m.Called(ctx, email, token, purpose)
	return args.Error(0)
}

// SequenceTokenGenerator hands out predictable codes: CODE01, CODE02, ...
type SequenceTokenGenerator struct {
	Err error

	mu sync.Mutex
	n  int
}

func (g *SequenceTokenGenerator) Generate() (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return strings.ToUpper(fmt.Sprintf("code%02d", g.n)), nil
}

// FakeClock is a manually advanced Clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SessionIssuerMock is a lightweight mock for SessionIssuer
type SessionIssuerMock struct {
	MintFn  func(a *account.Account, ttl time.Duration) (*auth.Session, error)
	ParseFn func(token string) (*auth.Claims, error)
}

func (m *SessionIssuerMock) Mint(a *account.Account, ttl time.Duration) (*auth.Session, error) {
	if m.MintFn != nil {
		return m.MintFn(a, ttl)
	}
	return &auth.Session{Token: "session-" + a.Email, ExpiresAt: time.Now().Add(ttl), Account: a.Projection()}, nil
}
func (m *SessionIssuerMock) Parse(token string) (*auth.Claims, error) {
	if m.ParseFn != nil {
		return m.ParseFn(token)
	}
	return nil, auth.ErrInvalidToken
}

// TokenDenylistMock is an in-memory TokenDenylist
type TokenDenylistMock struct {
	Err error

	mu     sync.Mutex
	denied map[string]time.Time
}

func (m *TokenDenylistMock) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied == nil {
		m.denied = make(map[string]time.Time)
	}
	m.denied[jti] = expiresAt
	return nil
}
func (m *TokenDenylistMock) IsDenied(ctx context.Context, jti string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.denied[jti]
	return ok, nil
}

// RateLimiterMock is a lightweight mock for RateLimiterService
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, key string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, 1, 1, time.Now().Add(time.Minute), nil
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, key string, window, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, key string, window, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, key, window, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// VerificationServiceMock is a lightweight mock for VerificationService
type VerificationServiceMock struct {
	RequestRegistrationFn func(ctx context.Context, req *auth.RegistrationRequest) (*auth.ChallengeTicket, error)
	VerifyRegistrationFn  func(ctx context.Context, email, code string) (*account.Account, error)
	ResendRegistrationFn  func(ctx context.Context, email string) (*auth.ChallengeTicket, error)
	RequestLoginFn        func(ctx context.Context, email string) (*auth.ChallengeTicket, error)
	VerifyLoginFn         func(ctx context.Context, email, code string) (*auth.Session, error)
	ResendLoginFn         func(ctx context.Context, email string) (*auth.ChallengeTicket, error)
	ResendFn              func(ctx context.Context, email string, purpose challenge.Purpose) (*auth.ChallengeTicket, error)
}

func (m *VerificationServiceMock) RequestRegistration(ctx context.Context, req *auth.RegistrationRequest) (*auth.ChallengeTicket, error) {
	if m.RequestRegistrationFn != nil {
		return m.RequestRegistrationFn(ctx, req)
	}
	return &auth.ChallengeTicket{Email: req.Email, Purpose: challenge.PurposeRegistration}, nil
}
func (m *VerificationServiceMock) VerifyRegistration(ctx context.Context, email, code string) (*account.Account, error) {
	if m.VerifyRegistrationFn != nil {
		return m.VerifyRegistrationFn(ctx, email, code)
	}
	return nil, challenge.ErrNoPendingChallenge
}
func (m *VerificationServiceMock) ResendRegistration(ctx context.Context, email string) (*auth.ChallengeTicket, error) {
	if m.ResendRegistrationFn != nil {
		return m.ResendRegistrationFn(ctx, email)
	}
	return nil, challenge.ErrNoPendingChallenge
}
func (m *VerificationServiceMock) RequestLogin(ctx context.Context, email string) (*auth.ChallengeTicket, error) {
	if m.RequestLoginFn != nil {
		return m.RequestLoginFn(ctx, email)
	}
	return &auth.ChallengeTicket{Email: email, Purpose: challenge.PurposeLogin}, nil
}
func (m *VerificationServiceMock) VerifyLogin(ctx context.Context, email, code string) (*auth.Session, error) {
	if m.VerifyLoginFn != nil {
		return m.VerifyLoginFn(ctx, email, code)
	}
	return nil, challenge.ErrNoPendingChallenge
}
func (m *VerificationServiceMock) ResendLogin(ctx context.Context, email string) (*auth.ChallengeTicket, error) {
	if m.ResendLoginFn != nil {
		return m.ResendLoginFn(ctx, email)
	}
	return nil, challenge.ErrNoPendingChallenge
}
func (m *VerificationServiceMock) Resend(ctx context.Context, email string, purpose challenge.Purpose) (*auth.ChallengeTicket, error) {
	if m.ResendFn != nil {
		return m.ResendFn(ctx, email, purpose)
	}
	return nil, challenge.ErrNoPendingChallenge
}

// AuthServiceMock is a lightweight mock for AuthService
type AuthServiceMock struct {
	PasswordLoginFn func(ctx context.Context, req *auth.LoginRequest) (*auth.Session, error)
	AuthenticateFn  func(ctx context.Context, token string) (*auth.Claims, error)
	LogoutFn        func(ctx context.Context, token string) error
}

func (m *AuthServiceMock) PasswordLogin(ctx context.Context, req *auth.LoginRequest) (*auth.Session, error) {
	if m.PasswordLoginFn != nil {
		return m.PasswordLoginFn(ctx, req)
	}
	return nil, challenge.ErrInvalidCredentials
}
func (m *AuthServiceMock) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}
func (m *AuthServiceMock) Logout(ctx context.Context, token string) error {
	if m.LogoutFn != nil {
		return m.LogoutFn(ctx, token)
	}
	return nil
}

// HealthCheckerMock is a lightweight mock for HealthChecker
type HealthCheckerMock struct {
	NameValue string
	Err       error
}

func (m *HealthCheckerMock) Name() string                    { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error { return m.Err }
