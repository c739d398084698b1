package ports

import (
	"context"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
)

// AccountRepository is the narrow slice of account storage the verification flows need.
type AccountRepository interface {
	// FindByEmail returns an error wrapping account.ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	Exists(ctx context.Context, email string) (bool, error)
	// Create returns an error wrapping account.ErrEmailTaken on a unique violation.
	Create(ctx context.Context, a *account.Account) error
}
