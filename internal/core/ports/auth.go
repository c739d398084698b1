package ports

import (
	"context"
	"time"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
)

// SessionIssuer mints and parses signed, stateless session credentials
type SessionIssuer interface {
	Mint(a *account.Account, ttl time.Duration) (*auth.Session, error)
	Parse(token string) (*auth.Claims, error)
}

// TokenDenylist records revoked session ids until their natural expiry
type TokenDenylist interface {
	Deny(ctx context.Context, jti string, expiresAt time.Time) error
	IsDenied(ctx context.Context, jti string) (bool, error)
}

// VerificationService drives the emailed one-time code flows
type VerificationService interface {
	RequestRegistration(ctx context.Context, req *auth.RegistrationRequest) (*auth.ChallengeTicket, error)
	VerifyRegistration(ctx context.Context, email, code string) (*account.Account, error)
	ResendRegistration(ctx context.Context, email string) (*auth.ChallengeTicket, error)

	RequestLogin(ctx context.Context, email string) (*auth.ChallengeTicket, error)
	VerifyLogin(ctx context.Context, email, code string) (*auth.Session, error)
	ResendLogin(ctx context.Context, email string) (*auth.ChallengeTicket, error)

	Resend(ctx context.Context, email string, purpose challenge.Purpose) (*auth.ChallengeTicket, error)
}

// AuthService covers credential login and session lifecycle
type AuthService interface {
	PasswordLogin(ctx context.Context, req *auth.LoginRequest) (*auth.Session, error)
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	Logout(ctx context.Context, token string) error
}
