package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// VerificationDeps groups the collaborators of the verification flows.
// Limiter and Queue are optional.
type VerificationDeps struct {
	Accounts      ports.AccountRepository
	Registrations ports.ChallengeStore
	Logins        ports.ChallengeStore
	Tokens        ports.TokenGenerator
	Sessions      ports.SessionIssuer
	Queue         ports.NotificationQueue
	Limiter       ports.RateLimiterService
	Clock         ports.Clock
}

type VerificationConfig struct {
	RegistrationTTL time.Duration
	LoginTTL        time.Duration
	OTPSessionTTL   time.Duration
	// MaxAttempts of zero leaves wrong guesses unlimited until expiry
	MaxAttempts int
	BcryptCost  int
}

type VerificationService struct {
	accounts      ports.AccountRepository
	registrations ports.ChallengeStore
	logins        ports.ChallengeStore
	tokens        ports.TokenGenerator
	sessions      ports.SessionIssuer
	queue         ports.NotificationQueue
	limiter       ports.RateLimiterService
	clock         ports.Clock
	cfg           VerificationConfig
	logger        *logrus.Logger
}

func NewVerificationService(deps VerificationDeps, cfg VerificationConfig, logger *logrus.Logger) ports.VerificationService {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Tokens == nil {
		deps.Tokens = NewHexTokenGenerator(defaultTokenBytes)
	}
	if cfg.RegistrationTTL <= 0 {
		cfg.RegistrationTTL = 10 * time.Minute
	}
	if cfg.LoginTTL <= 0 {
		cfg.LoginTTL = 10 * time.Minute
	}
	if cfg.OTPSessionTTL <= 0 {
		cfg.OTPSessionTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &VerificationService{
		accounts:      deps.Accounts,
		registrations: deps.Registrations,
		logins:        deps.Logins,
		tokens:        deps.Tokens,
		sessions:      deps.Sessions,
		queue:         deps.Queue,
		limiter:       deps.Limiter,
		clock:         deps.Clock,
		cfg:           cfg,
		logger:        logger,
	}
}

func (s *VerificationService) Resend(ctx context.Context, email string, purpose challenge.Purpose) (*auth.ChallengeTicket, error) {
	switch purpose {
	case challenge.PurposeRegistration:
		return s.ResendRegistration(ctx, email)
	case challenge.PurposeLogin:
		return s.ResendLogin(ctx, email)
	default:
		return nil, challenge.ErrNoPendingChallenge
	}
}

// issue stores a fresh challenge for email, superseding any previous one, and
// queues its delivery. The store write completes before anything is queued.
func (s *VerificationService) issue(ctx context.Context, store ports.ChallengeStore, purpose challenge.Purpose, c *challenge.Challenge, ttl time.Duration) (*auth.ChallengeTicket, error) {
	token, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := s.clock.Now()
	c.Token = token
	c.Attempts = 0
	c.CreatedAt = now
	c.ExpiresAt = now.Add(ttl)

	if err := store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store %s challenge: %w", purpose, err)
	}

	s.notify(c.Email, token, purpose)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"email":      c.Email,
			"purpose":    purpose,
			"expires_at": c.ExpiresAt,
		}).Info("verification code issued")
	}

	return &auth.ChallengeTicket{Email: c.Email, Purpose: purpose, ExpiresAt: c.ExpiresAt}, nil
}

func (s *VerificationService) notify(email, token string, purpose challenge.Purpose) {
	if s.queue == nil {
		return
	}
	if !s.queue.Enqueue(ports.Notification{Email: email, Token: token, Purpose: purpose}) && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email": email, "purpose": purpose}).Warn("notification was not queued")
	}
}

// allowIssue applies the per-email issuance throttle. Limiter failures fail open.
func (s *VerificationService) allowIssue(ctx context.Context, purpose challenge.Purpose, email string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, _, _, _, err := s.limiter.Allow(ctx, purpose.String()+":"+email)
	if err != nil {
		// fail open; the limiter logs the cause
		return nil
	}
	if !allowed {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email, "purpose": purpose}).Warn("challenge issuance rate limited")
		}
		return challenge.ErrRateLimited
	}
	return nil
}

func (s *VerificationService) consume(ctx context.Context, store ports.ChallengeStore, purpose challenge.Purpose, email, code string) (*challenge.Challenge, error) {
	c, err := store.Consume(ctx, email, code, s.clock.Now(), s.cfg.MaxAttempts)
	if err != nil {
		kind, ok := challenge.KindOf(err)
		if !ok {
			return nil, fmt.Errorf("failed to consume %s challenge: %w", purpose, err)
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email, "purpose": purpose, "outcome": kind}).Info("verification rejected")
		}
		return nil, err
	}
	return c, nil
}

func storeErr(op string, err error) error {
	if _, ok := challenge.KindOf(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
