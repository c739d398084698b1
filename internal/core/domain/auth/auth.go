package auth

import (
	"errors"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionRevoked = errors.New("session has been revoked")
)

// RegistrationRequest starts the registration flow
type RegistrationRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address  string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// VerifyRequest submits an emailed code for either flow
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,min=4,max=32"`
}

// EmailRequest carries just an address (login OTP request, per-flow resend)
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendRequest is the purpose-tagged resend input
type ResendRequest struct {
	Email   string            `json:"email" validate:"required,email"`
	Purpose challenge.Purpose `json:"purpose" validate:"required,oneof=registration login"`
}

// LoginRequest represents the password login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Claims represents the JWT claims of a session
type Claims struct {
	AccountID uuid.UUID    `json:"account_id"`
	Email     string       `json:"email"`
	Role      account.Role `json:"role"`

	jwt.RegisteredClaims
}

// Session is a minted credential plus the account it was minted for
type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Account   account.Projection `json:"account"`
}

// ChallengeTicket acknowledges that a code was issued without revealing it
type ChallengeTicket struct {
	Email     string            `json:"email"`
	Purpose   challenge.Purpose `json:"purpose"`
	ExpiresAt time.Time         `json:"expires_at"`
}
