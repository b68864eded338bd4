package account

import (
	"time"

	"github.com/google/uuid"
)

// Account holds the authoritative credit balance for one user.
// CreditsBalance is never negative; operations that would drive it below
// zero are rejected by the ledger engine, not clamped.
type Account struct {
	UserID         uuid.UUID `db:"user_id" json:"userId"`
	CreditsBalance int       `db:"credits_balance" json:"creditsBalance"`
	IsPremium      bool      `db:"is_premium" json:"isPremium"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
