package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	accounts    ports.AccountRepository
	sessions    ports.SessionIssuer
	denylist    ports.TokenDenylist
	passwordTTL time.Duration
	logger      *logrus.Logger
	compare     func(hash, password []byte) error
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// unknownAccountHash is compared against when the email has no account, so the
// not-found path costs the same bcrypt work as a wrong password.
func unknownAccountHash() []byte {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("no account for this email"), bcrypt.DefaultCost)
		if err == nil {
			dummyHash = h
		}
	})
	return dummyHash
}

// NewAuthService wires password login and session lifecycle. denylist may be nil,
// in which case Logout is a no-op and every unexpired token stays valid.
func NewAuthService(accounts ports.AccountRepository, sessions ports.SessionIssuer, denylist ports.TokenDenylist, passwordTTL time.Duration, logger *logrus.Logger) ports.AuthService {
	if passwordTTL <= 0 {
		passwordTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		accounts:    accounts,
		sessions:    sessions,
		denylist:    denylist,
		passwordTTL: passwordTTL,
		logger:      logger,
		compare:     bcrypt.CompareHashAndPassword,
	}
}

func (s *AuthService) PasswordLogin(ctx context.Context, req *auth.LoginRequest) (*auth.Session, error) {
	email := account.NormalizeEmail(req.Email)

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			_ = s.compare(unknownAccountHash(), []byte(req.Password))
			return nil, challenge.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if err := s.compare([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email}).Info("password login rejected")
		}
		return nil, challenge.ErrInvalidCredentials
	}

	session, err := s.sessions.Mint(acc, s.passwordTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session: %w", err)
	}
	return session, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil, err
	}
	if s.denylist == nil {
		return claims, nil
	}

	denied, err := s.denylist.IsDenied(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token denylist: %w", err)
	}
	if denied {
		return nil, auth.ErrSessionRevoked
	}
	return claims, nil
}

// Logout revokes the token until its own expiry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if s.denylist == nil {
		return nil
	}
	if err := s.denylist.Deny(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"account_id": claims.AccountID, "jti": claims.ID}).Info("session revoked")
	}
	return nil
}
