package account

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Account struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	Phone         string    `json:"phone" db:"phone"`
	Address       string    `json:"address" db:"address"`
	Role          Role      `json:"role" db:"role"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

// RegistrationPayload is the account-creation request held by a pending
// registration until its code is verified.
type RegistrationPayload struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	Role         Role   `json:"role"`
}

// Projection is the minimal account view returned alongside a session.
type Projection struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

func (a *Account) Projection() Projection {
	return Projection{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// FromRegistration builds a verified account from a pending registration payload.
func FromRegistration(p *RegistrationPayload, now time.Time) *Account {
	role := p.Role
	if !role.IsValid() {
		role = RoleCustomer
	}
	return &Account{
		ID:            uuid.New(),
		Email:         NormalizeEmail(p.Email),
		Name:          p.Name,
		PasswordHash:  p.PasswordHash,
		Phone:         p.Phone,
		Address:       p.Address,
		Role:          role,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
