package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Store persists engine results. Every mutation follows the same shape:
// the caller opens a transaction, loads a snapshot under FOR UPDATE row
// locks, runs a pure engine operation and commits the returned deltas.
// Concurrent operations on the same account serialize on the row lock.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// SnapshotTx locks the account row and its open lots, returning the
// engine's view of the account. The account row is created on first use.
func (s *Store) SnapshotTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (Snapshot, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, credits_balance, is_premium)
		VALUES ($1, 0, false)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: ensure account", ErrInternal)
	}

	var balance int
	err := tx.QueryRowContext(ctx, `
		SELECT credits_balance FROM accounts WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrAccountNotFound
		}
		return Snapshot{}, fmt.Errorf("%w: lock account row", ErrInternal)
	}

	lots := make([]Lot, 0)
	if err := tx.SelectContext(ctx, &lots, `
		SELECT id, user_id, initial_credits, remaining_credits, source_type, expires_at, created_at
		FROM credit_lots
		WHERE user_id = $1 AND remaining_credits > 0
		ORDER BY expires_at, created_at
		FOR UPDATE
	`, userID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: lock credit lots", ErrInternal)
	}

	return Snapshot{UserID: userID, Balance: balance, Lots: lots}, nil
}

// CommitCreditTx persists a purchase/bonus/grant result: new lot, ledger
// row and balance update, all inside the caller's transaction.
func (s *Store) CommitCreditTx(ctx context.Context, tx *sqlx.Tx, res *CreditResult) error {
	lot := res.NewLot
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_lots (id, user_id, initial_credits, remaining_credits, source_type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, lot.ID, lot.UserID, lot.InitialCredits, lot.Remaining, string(lot.SourceType), lot.ExpiresAt, lot.CreatedAt); err != nil {
		return fmt.Errorf("%w: insert credit lot", ErrInternal)
	}

	if err := s.insertTransactionTx(ctx, tx, res.Transaction); err != nil {
		return err
	}
	return s.updateBalanceTx(ctx, tx, res.Transaction.UserID, res.NewBalance)
}

// CommitDebitTx persists a spend or refund result.
func (s *Store) CommitDebitTx(ctx context.Context, tx *sqlx.Tx, res *DebitResult) error {
	for _, delta := range res.ConsumedLots {
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_lots SET remaining_credits = $2 WHERE id = $1
		`, delta.LotID, delta.Remaining); err != nil {
			return fmt.Errorf("%w: update credit lot", ErrInternal)
		}
	}

	if err := s.insertTransactionTx(ctx, tx, res.Transaction); err != nil {
		return err
	}
	return s.updateBalanceTx(ctx, tx, res.Transaction.UserID, res.NewBalance)
}

// CommitExpirationTx persists an expiration sweep result. A sweep with
// nothing due commits nothing, which keeps the sweep idempotent.
func (s *Store) CommitExpirationTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, res *ExpirationResult) error {
	if len(res.Transactions) == 0 {
		return nil
	}

	for _, delta := range res.ExpiredLots {
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_lots SET remaining_credits = 0 WHERE id = $1
		`, delta.LotID); err != nil {
			return fmt.Errorf("%w: zero expired lot", ErrInternal)
		}
	}

	for _, t := range res.Transactions {
		if err := s.insertTransactionTx(ctx, tx, t); err != nil {
			return err
		}
	}
	return s.updateBalanceTx(ctx, tx, userID, res.NewBalance)
}

// GetBalance returns the stored balance for a user
func (s *Store) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int
	err := s.db.GetContext(ctx2, &balance, `SELECT credits_balance FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get balance", ErrInternal)
	}
	return balance, nil
}

// ListTransactions returns a user's ledger history, newest first
func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, pagination Pagination) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := s.db.SelectContext(ctx2, &transactions, `
		SELECT id, user_id, amount, tx_type, description, balance_after,
		       related_payment_id, related_course_id, related_referral_id, created_at, expires_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}
	return transactions, nil
}

// ListTransactionsAsc returns the full ledger for one user in creation
// order, for balance replay checks.
func (s *Store) ListTransactionsAsc(ctx context.Context, userID uuid.UUID) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	transactions := make([]Transaction, 0)
	err := s.db.SelectContext(ctx2, &transactions, `
		SELECT id, user_id, amount, tx_type, description, balance_after,
		       related_payment_id, related_course_id, related_referral_id, created_at, expires_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}
	return transactions, nil
}

// UsersWithExpiredLots returns users holding lots that are past expiry
// with credits remaining, for the sweep worker.
func (s *Store) UsersWithExpiredLots(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	ids := make([]uuid.UUID, 0)
	err := s.db.SelectContext(ctx2, &ids, `
		SELECT DISTINCT user_id
		FROM credit_lots
		WHERE remaining_credits > 0 AND expires_at <= $1
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list users with expired lots", ErrInternal)
	}
	return ids, nil
}

func (s *Store) insertTransactionTx(ctx context.Context, tx *sqlx.Tx, t Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (
			id, user_id, amount, tx_type, description, balance_after,
			related_payment_id, related_course_id, related_referral_id, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.UserID, t.Amount, string(t.Type), t.Description, t.BalanceAfter,
		t.RelatedPaymentID, t.RelatedCourseID, t.RelatedReferralID, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}
	return nil
}

func (s *Store) updateBalanceTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, balance int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET credits_balance = $2, updated_at = now() WHERE user_id = $1
	`, userID, balance)
	if err != nil {
		return fmt.Errorf("%w: update account balance", ErrInternal)
	}
	return nil
}
