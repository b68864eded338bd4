package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `
	id, user_id, tier_id, gateway_order_id, gateway_payment_id,
	credits, amount_minor, currency, status, failure_reason,
	created_at, updated_at, completed_at
`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) Create(ctx context.Context, o *Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_orders (
			id, user_id, tier_id, gateway_order_id, credits,
			amount_minor, currency, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.UserID, o.TierID, o.GatewayOrderID, o.Credits,
		o.AmountMinor, o.Currency, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

// GetByGatewayOrderIDTx locks the order row for the rest of the caller's
// transaction. Returns nil for unknown gateway order ids; orders are
// never created from gateway input.
func (r *Repository) GetByGatewayOrderIDTx(ctx context.Context, tx *sqlx.Tx, gatewayOrderID string) (*Order, error) {
	var o Order
	err := tx.GetContext(ctx, &o, `
		SELECT `+orderColumns+`
		FROM payment_orders
		WHERE gateway_order_id = $1
		FOR UPDATE
	`, gatewayOrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// GetByGatewayPaymentIDTx locks the order carrying a captured payment id,
// used by the refund webhook which only knows the payment.
func (r *Repository) GetByGatewayPaymentIDTx(ctx context.Context, tx *sqlx.Tx, gatewayPaymentID string) (*Order, error) {
	var o Order
	err := tx.GetContext(ctx, &o, `
		SELECT `+orderColumns+`
		FROM payment_orders
		WHERE gateway_payment_id = $1
		FOR UPDATE
	`, gatewayPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// UpdateTx persists the mutable order fields inside the caller's transaction.
func (r *Repository) UpdateTx(ctx context.Context, tx *sqlx.Tx, o *Order) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE payment_orders
		SET gateway_payment_id = $2, status = $3, failure_reason = $4,
		    updated_at = $5, completed_at = $6
		WHERE id = $1
	`, o.ID, o.GatewayPaymentID, string(o.Status), o.FailureReason, o.UpdatedAt, o.CompletedAt)
	return err
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders := make([]Order, 0)
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM payment_orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
