package referral

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateCode mints a shareable referral code for a user. A second mint
// for the same user is a no-op; the caller re-reads the surviving code.
func (r *Repository) CreateCode(ctx context.Context, userID uuid.UUID, code string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO referral_codes (code, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, code, userID, time.Now())
	return err
}

func (r *Repository) GetCodeByUserID(ctx context.Context, userID uuid.UUID) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code, `SELECT code FROM referral_codes WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return code, nil
}

func (r *Repository) GetUserIDByCode(ctx context.Context, code string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM referral_codes WHERE code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return userID, nil
}

func (r *Repository) Create(ctx context.Context, ref *Referral) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO referrals (id, referrer_id, referee_id, code, status, referrer_bonus, referee_bonus, first_purchase_credits, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6)
	`, ref.ID, ref.ReferrerID, ref.RefereeID, ref.Code, string(ref.Status), ref.CreatedAt)
	return err
}

func (r *Repository) GetByRefereeID(ctx context.Context, refereeID uuid.UUID) (*Referral, error) {
	var ref Referral
	err := r.db.GetContext(ctx, &ref, `
		SELECT id, referrer_id, referee_id, code, status, referrer_bonus, referee_bonus,
		       first_purchase_credits, first_purchase_order_id, created_at, completed_at
		FROM referrals
		WHERE referee_id = $1
	`, refereeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// GetByRefereeIDTx locks the referee's referral row inside the caller's
// transaction. Locking here is what keeps two concurrent first purchases
// from both paying out.
func (r *Repository) GetByRefereeIDTx(ctx context.Context, tx *sqlx.Tx, refereeID uuid.UUID) (*Referral, error) {
	var ref Referral
	err := tx.GetContext(ctx, &ref, `
		SELECT id, referrer_id, referee_id, code, status, referrer_bonus, referee_bonus,
		       first_purchase_credits, first_purchase_order_id, created_at, completed_at
		FROM referrals
		WHERE referee_id = $1
		FOR UPDATE
	`, refereeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// CompleteTx marks a referral paid out inside the caller's transaction,
// recording which purchase triggered it and how large it was.
func (r *Repository) CompleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, award Award, orderID uuid.UUID, purchasedCredits int, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE referrals
		SET status = $2, referrer_bonus = $3, referee_bonus = $4,
		    first_purchase_credits = $5, first_purchase_order_id = $6, completed_at = $7
		WHERE id = $1
	`, id, string(StatusCompleted), award.ReferrerBonus, award.RefereeBonus, purchasedCredits, orderID, now)
	return err
}

func (r *Repository) GetStats(ctx context.Context, referrerID uuid.UUID) (*Stats, error) {
	var stats Stats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_referred,
			COUNT(*) FILTER (WHERE status = 'completed') AS total_completed,
			COALESCE(SUM(referrer_bonus) FILTER (WHERE status = 'completed'), 0) AS credits_earned
		FROM referrals
		WHERE referrer_id = $1
	`, referrerID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
