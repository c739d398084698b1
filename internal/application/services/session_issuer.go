package services

import (
	"fmt"
	"time"

	config "github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/configs"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTSessionIssuer mints HS256 session tokens. It holds no state beyond the key.
type JWTSessionIssuer struct {
	secret []byte
	issuer string
	clock  ports.Clock
}

func NewJWTSessionIssuer(cfg *config.JWTConfig, clock ports.Clock) *JWTSessionIssuer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &JWTSessionIssuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, clock: clock}
}

func (i *JWTSessionIssuer) Mint(a *account.Account, ttl time.Duration) (*auth.Session, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot mint session without an account")
	}
	now := i.clock.Now()
	expiresAt := now.Add(ttl)

	claims := &auth.Claims{
		AccountID: a.ID,
		Email:     a.Email,
		Role:      a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   a.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &auth.Session{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		Account:   a.Projection(),
	}, nil
}

func (i *JWTSessionIssuer) Parse(tokenString string) (*auth.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok || !token.Valid {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}
