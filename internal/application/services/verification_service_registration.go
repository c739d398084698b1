package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func (s *VerificationService) RequestRegistration(ctx context.Context, req *auth.RegistrationRequest) (*auth.ChallengeTicket, error) {
	email := account.NormalizeEmail(req.Email)

	exists, err := s.accounts.Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		return nil, challenge.ErrAlreadyExists
	}

	if err := s.allowIssue(ctx, challenge.PurposeRegistration, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	c := &challenge.Challenge{
		Email: email,
		Payload: &account.RegistrationPayload{
			Name:         req.Name,
			Email:        email,
			PasswordHash: string(hash),
			Phone:        req.Phone,
			Address:      req.Address,
			Role:         account.RoleCustomer,
		},
	}
	return s.issue(ctx, s.registrations, challenge.PurposeRegistration, c, s.cfg.RegistrationTTL)
}

// VerifyRegistration consumes the pending registration and creates the account.
// No session is issued; the caller authenticates separately.
func (s *VerificationService) VerifyRegistration(ctx context.Context, email, code string) (*account.Account, error) {
	email = account.NormalizeEmail(email)

	c, err := s.consume(ctx, s.registrations, challenge.PurposeRegistration, email, code)
	if err != nil {
		return nil, err
	}
	if c.Payload == nil {
		return nil, fmt.Errorf("pending registration for %s has no payload", email)
	}

	acc := account.FromRegistration(c.Payload, s.clock.Now())
	acc.Email = email
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, challenge.ErrAlreadyExists
		}
		// Put the challenge back so the user can retry once storage recovers,
		// unless a newer registration for this email has been issued meanwhile.
		restored, rerr := s.registrations.Restore(ctx, c)
		if s.logger != nil {
			fields := logrus.Fields{"email": email}
			if rerr != nil {
				s.logger.WithFields(fields).WithError(rerr).Error("failed to restore pending registration")
			} else if !restored {
				s.logger.WithFields(fields).Info("newer pending registration kept; consumed one not restored")
			}
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.notify(email, "", challenge.PurposeWelcome)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"email": email, "account_id": acc.ID}).Info("registration verified")
	}
	return acc, nil
}

// ResendRegistration regenerates the code of a live pending registration in
// place, keeping its payload. It never starts a registration on its own.
func (s *VerificationService) ResendRegistration(ctx context.Context, email string) (*auth.ChallengeTicket, error) {
	email = account.NormalizeEmail(email)

	c, err := s.registrations.Get(ctx, email)
	if err != nil {
		return nil, storeErr("load pending registration", err)
	}
	if c.IsExpired(s.clock.Now()) {
		if err := s.registrations.Delete(ctx, email); err != nil {
			return nil, fmt.Errorf("failed to delete expired registration: %w", err)
		}
		return nil, challenge.ErrExpired
	}

	if err := s.allowIssue(ctx, challenge.PurposeRegistration, email); err != nil {
		return nil, err
	}
	return s.issue(ctx, s.registrations, challenge.PurposeRegistration, c, s.cfg.RegistrationTTL)
}
