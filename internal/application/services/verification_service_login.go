package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/sirupsen/logrus"
)

// RequestLogin issues a login code for an existing account. Unknown emails
// leave no state behind.
func (s *VerificationService) RequestLogin(ctx context.Context, email string) (*auth.ChallengeTicket, error) {
	email = account.NormalizeEmail(email)

	if _, err := s.findAccount(ctx, email); err != nil {
		return nil, err
	}
	if err := s.allowIssue(ctx, challenge.PurposeLogin, email); err != nil {
		return nil, err
	}
	return s.issue(ctx, s.logins, challenge.PurposeLogin, &challenge.Challenge{Email: email}, s.cfg.LoginTTL)
}

func (s *VerificationService) VerifyLogin(ctx context.Context, email, code string) (*auth.Session, error) {
	email = account.NormalizeEmail(email)

	if _, err := s.consume(ctx, s.logins, challenge.PurposeLogin, email, code); err != nil {
		return nil, err
	}

	acc, err := s.findAccount(ctx, email)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Mint(acc, s.cfg.OTPSessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email": email, "account_id": acc.ID}).Info("otp login verified")
	}
	return session, nil
}

// ResendLogin refreshes a live login code. When the entry is missing or expired
// (including after a restart of a process-local store) it falls back to issuing
// a fresh code for an existing account.
func (s *VerificationService) ResendLogin(ctx context.Context, email string) (*auth.ChallengeTicket, error) {
	email = account.NormalizeEmail(email)

	c, err := s.logins.Get(ctx, email)
	switch {
	case err == nil && !c.IsExpired(s.clock.Now()):
		if err := s.allowIssue(ctx, challenge.PurposeLogin, email); err != nil {
			return nil, err
		}
		return s.issue(ctx, s.logins, challenge.PurposeLogin, c, s.cfg.LoginTTL)
	case err == nil, errors.Is(err, challenge.ErrNoPendingChallenge):
	default:
		return nil, storeErr("load pending login", err)
	}

	if _, err := s.findAccount(ctx, email); err != nil {
		if errors.Is(err, challenge.ErrAccountNotFound) {
			if c != nil {
				if derr := s.logins.Delete(ctx, email); derr != nil && s.logger != nil {
					s.logger.WithFields(logrus.Fields{"email": email}).WithError(derr).Warn("failed to delete orphaned login challenge")
				}
			}
			return nil, challenge.ErrNoPendingChallenge
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email": email}).Info("recovering login challenge")
	}
	if err := s.allowIssue(ctx, challenge.PurposeLogin, email); err != nil {
		return nil, err
	}
	return s.issue(ctx, s.logins, challenge.PurposeLogin, &challenge.Challenge{Email: email}, s.cfg.LoginTTL)
}

func (s *VerificationService) findAccount(ctx context.Context, email string) (*account.Account, error) {
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, challenge.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, nil
}
