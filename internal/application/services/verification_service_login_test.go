package services_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/application/services"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/test/mocks"
)

func TestLogin_RequestForMissingAccountWritesNothing(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestLogin(ctx, "ghost@x.com")
	require.ErrorIs(t, err, challenge.ErrAccountNotFound)
	assert.False(t, errors.Is(err, challenge.ErrExpired))
	assert.False(t, errors.Is(err, challenge.ErrNoPendingChallenge))

	_, err = h.logins.Get(ctx, "ghost@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Empty(t, h.queue.Sent())
}

func TestLogin_VerifyMintsShortSession(t *testing.T) {
	acc := existing("shopper@x.com")
	h := newHarness(5, acc)
	ctx := context.Background()

	var mintedTTL time.Duration
	h.sessions.MintFn = func(a *account.Account, ttl time.Duration) (*auth.Session, error) {
		mintedTTL = ttl
		return &auth.Session{Token: "jwt", Account: a.Projection()}, nil
	}

	ticket, err := h.svc.RequestLogin(ctx, "Shopper@x.com")
	require.NoError(t, err)
	assert.Equal(t, challenge.PurposeLogin, ticket.Purpose)

	session, err := h.svc.VerifyLogin(ctx, "shopper@x.com", h.code(t, "shopper@x.com", challenge.PurposeLogin))
	require.NoError(t, err)
	assert.Equal(t, "jwt", session.Token)
	assert.Equal(t, acc.ID, session.Account.ID)
	assert.Equal(t, time.Hour, mintedTTL)

	_, err = h.svc.VerifyLogin(ctx, "shopper@x.com", h.code(t, "shopper@x.com", challenge.PurposeLogin))
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
}

func TestLogin_ExpiredCode(t *testing.T) {
	h := newHarness(5, existing("slow@x.com"))
	ctx := context.Background()

	_, err := h.svc.RequestLogin(ctx, "slow@x.com")
	require.NoError(t, err)
	h.clock.Advance(10*time.Minute + time.Millisecond)

	_, err = h.svc.VerifyLogin(ctx, "slow@x.com", h.code(t, "slow@x.com", challenge.PurposeLogin))
	require.ErrorIs(t, err, challenge.ErrExpired)
}

func TestLogin_AccountRemovedBeforeVerify(t *testing.T) {
	h := newHarness(5, existing("gone@x.com"))
	ctx := context.Background()

	_, err := h.svc.RequestLogin(ctx, "gone@x.com")
	require.NoError(t, err)
	h.accounts.FindByEmailFn = func(ctx context.Context, email string) (*account.Account, error) {
		return nil, account.ErrNotFound
	}

	_, err = h.svc.VerifyLogin(ctx, "gone@x.com", h.code(t, "gone@x.com", challenge.PurposeLogin))
	require.ErrorIs(t, err, challenge.ErrAccountNotFound)
}

func TestLogin_ResendRefreshesLiveCode(t *testing.T) {
	h := newHarness(5, existing("r@x.com"))
	ctx := context.Background()

	_, err := h.svc.RequestLogin(ctx, "r@x.com")
	require.NoError(t, err)
	first := h.code(t, "r@x.com", challenge.PurposeLogin)

	_, err = h.svc.ResendLogin(ctx, "r@x.com")
	require.NoError(t, err)
	second := h.code(t, "r@x.com", challenge.PurposeLogin)
	require.NotEqual(t, first, second)

	_, err = h.svc.VerifyLogin(ctx, "r@x.com", first)
	require.ErrorIs(t, err, challenge.ErrInvalidCode)
	_, err = h.svc.VerifyLogin(ctx, "r@x.com", second)
	require.NoError(t, err)
}

func TestLogin_ResendRecoversWithoutEntry(t *testing.T) {
	h := newHarness(5, existing("restart@x.com"))
	ctx := context.Background()

	ticket, err := h.svc.Resend(ctx, "restart@x.com", challenge.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(10*time.Minute), ticket.ExpiresAt)

	code := h.code(t, "restart@x.com", challenge.PurposeLogin)
	_, err = h.svc.VerifyLogin(ctx, "restart@x.com", code)
	require.NoError(t, err)
}

func TestLogin_ResendRecoversExpiredEntry(t *testing.T) {
	h := newHarness(5, existing("later@x.com"))
	ctx := context.Background()

	_, err := h.svc.RequestLogin(ctx, "later@x.com")
	require.NoError(t, err)
	h.clock.Advance(30 * time.Minute)

	_, err = h.svc.ResendLogin(ctx, "later@x.com")
	require.NoError(t, err)
	_, err = h.svc.VerifyLogin(ctx, "later@x.com", h.code(t, "later@x.com", challenge.PurposeLogin))
	require.NoError(t, err)
}

func TestLogin_ResendWithoutAccountFailsClosed(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.ResendLogin(ctx, "ghost@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Empty(t, h.queue.Sent())
}

func TestLogin_ResendLogsOrphanDeleteFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	h := newHarness(5)
	logins := &mocks.ChallengeStoreMock{
		GetFn: func(ctx context.Context, email string) (*challenge.Challenge, error) {
			return &challenge.Challenge{Email: email, Token: "OLD111", ExpiresAt: t0.Add(-time.Minute)}, nil
		},
		DeleteFn: func(ctx context.Context, email string) error {
			return errors.New("redis: connection refused")
		},
	}
	svc := services.NewVerificationService(services.VerificationDeps{
		Accounts:      h.accounts,
		Registrations: h.regs,
		Logins:        logins,
		Tokens:        h.tokens,
		Sessions:      h.sessions,
		Queue:         h.queue,
		Limiter:       h.limiter,
		Clock:         h.clock,
	}, services.VerificationConfig{LoginTTL: 10 * time.Minute, MaxAttempts: 5, BcryptCost: bcrypt.MinCost}, logger)

	_, err := svc.ResendLogin(context.Background(), "gone@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Contains(t, buf.String(), "failed to delete orphaned login challenge")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestLogin_ResendUnknownPurpose(t *testing.T) {
	h := newHarness(5)
	_, err := h.svc.Resend(context.Background(), "a@x.com", challenge.PurposeWelcome)
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
}

func TestLogin_StoresArePerPurpose(t *testing.T) {
	h := newHarness(5, existing("both@x.com"))
	ctx := context.Background()

	_, err := h.svc.RequestLogin(ctx, "both@x.com")
	require.NoError(t, err)
	loginCode := h.code(t, "both@x.com", challenge.PurposeLogin)

	_, err = h.svc.VerifyRegistration(ctx, "both@x.com", loginCode)
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	_, err = h.svc.VerifyLogin(ctx, "both@x.com", loginCode)
	require.NoError(t, err)
}
