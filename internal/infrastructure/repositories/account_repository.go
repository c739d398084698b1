package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/ports"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/db"
)

// AccountRepository implements ports.AccountRepository on postgres
type AccountRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewAccountRepository(database *db.Database, logger *logrus.Logger) ports.AccountRepository {
	return &AccountRepository{db: database, logger: logger}
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (id, email, name, password_hash, phone, address, role, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.DB.ExecContext(ctx, query,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Phone, a.Address, a.Role,
		a.EmailVerified, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("create account %s: %w", a.Email, account.ErrEmailTaken)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": a.ID, "email": a.Email}).WithError(err).Error("db: failed to create account")
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"account_id": a.ID, "email": a.Email}).Info("db: account created")
	}
	return nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	var a account.Account
	query := `
		SELECT id, email, name, password_hash, phone, address, role, email_verified, created_at, updated_at
		FROM accounts
		WHERE email = $1`

	if err := r.db.DB.GetContext(ctx, &a, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"email": email}).Debug("db: account not found by email")
			}
			return nil, fmt.Errorf("find account %s: %w", email, account.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}
