package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository provides read access to account rows. All balance mutations go
// through the ledger store so balance and transaction history stay in step.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Ensure creates the account row if it does not exist yet
func (r *Repository) Ensure(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, credits_balance, is_premium)
		VALUES ($1, 0, false)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

// GetByUserID returns the account for a user
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	var acc Account
	err := r.db.GetContext(ctx, &acc, `
		SELECT user_id, credits_balance, is_premium, updated_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}
