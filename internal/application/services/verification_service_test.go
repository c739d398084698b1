package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/application/services"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/repositories"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/test/mocks"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock    *mocks.FakeClock
	accounts *mocks.AccountRepositoryMock
	regs     ports.ChallengeStore
	logins   ports.ChallengeStore
	queue    *mocks.NotificationQueueMock
	tokens   *mocks.SequenceTokenGenerator
	sessions *mocks.SessionIssuerMock
	limiter  *mocks.RateLimiterMock
	svc      ports.VerificationService
}

func newHarness(maxAttempts int, seed ...*account.Account) *harness {
	h := &harness{
		clock:    mocks.NewFakeClock(t0),
		accounts: mocks.NewAccountRepositoryMock(seed...),
		regs:     repositories.NewChallengeMemoryStore(),
		logins:   repositories.NewChallengeMemoryStore(),
		queue:    &mocks.NotificationQueueMock{},
		tokens:   &mocks.SequenceTokenGenerator{},
		sessions: &mocks.SessionIssuerMock{},
		limiter:  &mocks.RateLimiterMock{},
	}
	h.svc = services.NewVerificationService(services.VerificationDeps{
		Accounts:      h.accounts,
		Registrations: h.regs,
		Logins:        h.logins,
		Tokens:        h.tokens,
		Sessions:      h.sessions,
		Queue:         h.queue,
		Limiter:       h.limiter,
		Clock:         h.clock,
	}, services.VerificationConfig{
		RegistrationTTL: 10 * time.Minute,
		LoginTTL:        10 * time.Minute,
		OTPSessionTTL:   time.Hour,
		MaxAttempts:     maxAttempts,
		BcryptCost:      bcrypt.MinCost,
	}, nil)
	return h
}

func registration(email string) *auth.RegistrationRequest {
	return &auth.RegistrationRequest{Name: "New User", Email: email, Password: "correct-horse", Phone: "0771234567", Address: "12 Lake Rd"}
}

func existing(email string) *account.Account {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	return &account.Account{ID: uuid.New(), Email: email, Name: "Existing", PasswordHash: string(hash), Role: account.RoleCustomer, EmailVerified: true}
}

func (h *harness) code(t *testing.T, email string, purpose challenge.Purpose) string {
	t.Helper()
	n, ok := h.queue.Last(email, purpose)
	require.True(t, ok, "no %s notification for %s", purpose, email)
	return n.Token
}

func TestRegistration_VerifyCreatesAccountOnce(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	ticket, err := h.svc.RequestRegistration(ctx, registration("New@X.com"))
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", ticket.Email)
	assert.Equal(t, t0.Add(10*time.Minute), ticket.ExpiresAt)

	stored, err := h.regs.Get(ctx, "new@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.Payload)
	assert.NotEqual(t, "correct-horse", stored.Payload.PasswordHash, "credential stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Payload.PasswordHash), []byte("correct-horse")))

	code := h.code(t, "new@x.com", challenge.PurposeRegistration)
	h.clock.Advance(9 * time.Minute)

	acc, err := h.svc.VerifyRegistration(ctx, "new@x.com", code)
	require.NoError(t, err)
	assert.True(t, acc.EmailVerified)
	assert.Equal(t, "New User", acc.Name)
	assert.Equal(t, "0771234567", acc.Phone)
	assert.Equal(t, account.RoleCustomer, acc.Role)
	assert.Equal(t, 1, h.accounts.Creates())

	_, ok := h.queue.Last("new@x.com", challenge.PurposeWelcome)
	assert.True(t, ok, "welcome message queued")

	_, err = h.svc.VerifyRegistration(ctx, "new@x.com", code)
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Equal(t, 1, h.accounts.Creates())
}

func TestRegistration_ExpiredCodeCreatesNothing(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("late@x.com"))
	require.NoError(t, err)
	code := h.code(t, "late@x.com", challenge.PurposeRegistration)

	h.clock.Advance(10*time.Minute + time.Millisecond)
	_, err = h.svc.VerifyRegistration(ctx, "late@x.com", code)
	require.ErrorIs(t, err, challenge.ErrExpired)
	var de *challenge.Error
	require.True(t, errors.As(err, &de))
	assert.True(t, de.Expired())
	assert.Equal(t, 0, h.accounts.Creates())

	_, err = h.regs.Get(ctx, "late@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
}

func TestRegistration_ExpiryInstantStillValid(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("edge@x.com"))
	require.NoError(t, err)
	h.clock.Advance(10 * time.Minute)

	_, err = h.svc.VerifyRegistration(ctx, "edge@x.com", h.code(t, "edge@x.com", challenge.PurposeRegistration))
	require.NoError(t, err)
}

func TestRegistration_WrongThenRightCode(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("typo@x.com"))
	require.NoError(t, err)

	_, err = h.svc.VerifyRegistration(ctx, "typo@x.com", "ZZZZZZ")
	require.ErrorIs(t, err, challenge.ErrInvalidCode)

	code := h.code(t, "typo@x.com", challenge.PurposeRegistration)
	_, err = h.svc.VerifyRegistration(ctx, "typo@x.com", code)
	require.NoError(t, err)
}

func TestRegistration_ExistingAccountWritesNothing(t *testing.T) {
	h := newHarness(5, existing("dup@x.com"))
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("dup@x.com"))
	require.ErrorIs(t, err, challenge.ErrAlreadyExists)

	_, err = h.regs.Get(ctx, "dup@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Empty(t, h.queue.Sent())
}

func TestRegistration_ResendWithoutPendingFailsClosed(t *testing.T) {
	h := newHarness(5)
	_, err := h.svc.ResendRegistration(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)

	_, err = h.svc.Resend(context.Background(), "nobody@x.com", challenge.PurposeRegistration)
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Empty(t, h.queue.Sent())
}

func TestRegistration_ResendSupersedesAndKeepsPayload(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("again@x.com"))
	require.NoError(t, err)
	first := h.code(t, "again@x.com", challenge.PurposeRegistration)

	h.clock.Advance(5 * time.Minute)
	ticket, err := h.svc.ResendRegistration(ctx, "again@x.com")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(15*time.Minute), ticket.ExpiresAt, "resend restarts the window")
	second := h.code(t, "again@x.com", challenge.PurposeRegistration)
	require.NotEqual(t, first, second)

	_, err = h.svc.VerifyRegistration(ctx, "again@x.com", first)
	require.ErrorIs(t, err, challenge.ErrInvalidCode)

	h.clock.Advance(9 * time.Minute)
	acc, err := h.svc.VerifyRegistration(ctx, "again@x.com", second)
	require.NoError(t, err)
	assert.Equal(t, "12 Lake Rd", acc.Address)
}

func TestRegistration_ResendOfExpiredDeletes(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("stale@x.com"))
	require.NoError(t, err)
	h.clock.Advance(11 * time.Minute)

	_, err = h.svc.ResendRegistration(ctx, "stale@x.com")
	require.ErrorIs(t, err, challenge.ErrExpired)
	_, err = h.regs.Get(ctx, "stale@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
}

func TestRegistration_NoCrossEmailLeakage(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("a@x.com"))
	require.NoError(t, err)
	_, err = h.svc.RequestRegistration(ctx, registration("b@x.com"))
	require.NoError(t, err)
	codeA := h.code(t, "a@x.com", challenge.PurposeRegistration)

	_, err = h.svc.VerifyRegistration(ctx, "b@x.com", codeA)
	require.ErrorIs(t, err, challenge.ErrInvalidCode)

	_, err = h.svc.VerifyRegistration(ctx, "a@x.com", codeA)
	require.NoError(t, err)

	pendingB, err := h.regs.Get(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, pendingB.Attempts)
}

func TestRegistration_AttemptLimitLocksChallenge(t *testing.T) {
	h := newHarness(3)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("guess@x.com"))
	require.NoError(t, err)
	code := h.code(t, "guess@x.com", challenge.PurposeRegistration)

	for i := 0; i < 2; i++ {
		_, err = h.svc.VerifyRegistration(ctx, "guess@x.com", "000000")
		require.ErrorIs(t, err, challenge.ErrInvalidCode)
	}
	_, err = h.svc.VerifyRegistration(ctx, "guess@x.com", "000000")
	require.ErrorIs(t, err, challenge.ErrAttemptsExceeded)

	_, err = h.svc.VerifyRegistration(ctx, "guess@x.com", code)
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
	assert.Equal(t, 0, h.accounts.Creates())
}

func TestRegistration_ConcurrentVerifyCreatesOneAccount(t *testing.T) {
	h := newHarness(0)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("race@x.com"))
	require.NoError(t, err)
	code := h.code(t, "race@x.com", challenge.PurposeRegistration)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.VerifyRegistration(ctx, "race@x.com", code); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, h.accounts.Creates())
}

func TestRegistration_CreateRaceReportsAlreadyExists(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("both@x.com"))
	require.NoError(t, err)
	h.accounts.CreateFn = func(ctx context.Context, a *account.Account) error {
		return account.ErrEmailTaken
	}

	_, err = h.svc.VerifyRegistration(ctx, "both@x.com", h.code(t, "both@x.com", challenge.PurposeRegistration))
	require.ErrorIs(t, err, challenge.ErrAlreadyExists)
}

func TestRegistration_CreateFailureRestoresChallenge(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("retry@x.com"))
	require.NoError(t, err)
	code := h.code(t, "retry@x.com", challenge.PurposeRegistration)

	h.accounts.CreateFn = func(ctx context.Context, a *account.Account) error {
		return errors.New("connection reset")
	}
	_, err = h.svc.VerifyRegistration(ctx, "retry@x.com", code)
	require.Error(t, err)
	_, isDomain := challenge.KindOf(err)
	assert.False(t, isDomain)

	h.accounts.CreateFn = nil
	_, err = h.svc.VerifyRegistration(ctx, "retry@x.com", code)
	require.NoError(t, err)
}

func TestRegistration_CreateFailureKeepsNewerChallenge(t *testing.T) {
	h := newHarness(5)
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("race@x.com"))
	require.NoError(t, err)
	oldCode := h.code(t, "race@x.com", challenge.PurposeRegistration)

	reissued := false
	h.accounts.CreateFn = func(ctx context.Context, a *account.Account) error {
		if !reissued {
			reissued = true
			req := registration("race@x.com")
			req.Name = "Second Try"
			_, err := h.svc.RequestRegistration(ctx, req)
			require.NoError(t, err)
		}
		return errors.New("connection reset")
	}
	_, err = h.svc.VerifyRegistration(ctx, "race@x.com", oldCode)
	require.Error(t, err)
	newCode := h.code(t, "race@x.com", challenge.PurposeRegistration)
	require.NotEqual(t, oldCode, newCode)

	stored, err := h.regs.Get(ctx, "race@x.com")
	require.NoError(t, err)
	assert.Equal(t, newCode, stored.Token)

	h.accounts.CreateFn = nil
	_, err = h.svc.VerifyRegistration(ctx, "race@x.com", oldCode)
	require.ErrorIs(t, err, challenge.ErrInvalidCode)

	acc, err := h.svc.VerifyRegistration(ctx, "race@x.com", newCode)
	require.NoError(t, err)
	assert.Equal(t, "Second Try", acc.Name)
}

func TestRegistration_RateLimited(t *testing.T) {
	h := newHarness(5)
	var keys []string
	h.limiter.AllowFn = func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		keys = append(keys, key)
		return len(keys) <= 1, 0, 1, t0.Add(time.Minute), nil
	}
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("spam@x.com"))
	require.NoError(t, err)
	_, err = h.svc.ResendRegistration(ctx, "spam@x.com")
	require.ErrorIs(t, err, challenge.ErrRateLimited)
	assert.Equal(t, []string{"registration:spam@x.com", "registration:spam@x.com"}, keys)
	assert.Len(t, h.queue.Sent(), 1)
}

func TestRegistration_LimiterFailureFailsOpen(t *testing.T) {
	h := newHarness(5)
	h.limiter.AllowFn = func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		return false, 0, 0, time.Time{}, errors.New("redis down")
	}
	_, err := h.svc.RequestRegistration(context.Background(), registration("ok@x.com"))
	require.NoError(t, err)
}

func TestRegistration_DroppedNotificationStillCommits(t *testing.T) {
	h := newHarness(5)
	h.queue.Reject = true
	ctx := context.Background()

	_, err := h.svc.RequestRegistration(ctx, registration("quiet@x.com"))
	require.NoError(t, err)
	_, err = h.regs.Get(ctx, "quiet@x.com")
	require.NoError(t, err)
}

func TestRegistration_StoreFailureIsInfrastructure(t *testing.T) {
	h := newHarness(5)
	failing := &mocks.ChallengeStoreMock{
		PutFn: func(ctx context.Context, c *challenge.Challenge) error { return errors.New("disk full") },
	}
	svc := services.NewVerificationService(services.VerificationDeps{
		Accounts:      h.accounts,
		Registrations: failing,
		Logins:        h.logins,
		Tokens:        h.tokens,
		Queue:         h.queue,
		Clock:         h.clock,
	}, services.VerificationConfig{BcryptCost: bcrypt.MinCost}, nil)

	_, err := svc.RequestRegistration(context.Background(), registration("x@x.com"))
	require.Error(t, err)
	_, isDomain := challenge.KindOf(err)
	assert.False(t, isDomain)
	assert.Empty(t, h.queue.Sent(), "nothing is delivered for an unstored code")
}

func TestRegistration_TokenGeneratorFailure(t *testing.T) {
	h := newHarness(5)
	h.tokens.Err = errors.New("entropy exhausted")
	_, err := h.svc.RequestRegistration(context.Background(), registration("x@x.com"))
	require.Error(t, err)
	_, err = h.regs.Get(context.Background(), "x@x.com")
	require.ErrorIs(t, err, challenge.ErrNoPendingChallenge)
}
