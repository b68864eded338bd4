package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TxType defines supported credit transaction types.
type TxType string

const (
	TxTypePurchase   TxType = "purchase"
	TxTypeEarned     TxType = "earned"
	TxTypeSpent      TxType = "spent"
	TxTypeRefund     TxType = "refund"
	TxTypeBonus      TxType = "bonus"
	TxTypeReferral   TxType = "referral"
	TxTypeExpiration TxType = "expiration"
)

// Transaction is an immutable ledger row. Amount is signed: positive
// credits the account, negative debits it. BalanceAfter snapshots the
// balance so the ledger replays independently of the accounts table.
type Transaction struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	UserID            uuid.UUID     `db:"user_id" json:"userId"`
	Amount            int           `db:"amount" json:"amount"`
	Type              TxType        `db:"tx_type" json:"type"`
	Description       string        `db:"description" json:"description"`
	BalanceAfter      int           `db:"balance_after" json:"balanceAfter"`
	RelatedPaymentID  uuid.NullUUID `db:"related_payment_id" json:"relatedPaymentId,omitempty"`
	RelatedCourseID   uuid.NullUUID `db:"related_course_id" json:"relatedCourseId,omitempty"`
	RelatedReferralID uuid.NullUUID `db:"related_referral_id" json:"relatedReferralId,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	ExpiresAt         sql.NullTime  `db:"expires_at" json:"expiresAt,omitempty"`
}

// Lot groups the credits of one purchase or bonus under a shared expiry.
// Lots are consumed oldest-expiring-first so expiration sweeps reclaim
// stale credits without starving newer purchases.
type Lot struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"userId"`
	InitialCredits int       `db:"initial_credits" json:"initialCredits"`
	Remaining      int       `db:"remaining_credits" json:"remainingCredits"`
	SourceType     TxType    `db:"source_type" json:"sourceType"`
	ExpiresAt      time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Snapshot is the engine's read-only view of one account: the current
// balance plus all lots with remaining credits. The engine never touches
// storage; the caller loads a snapshot under a row lock, runs an engine
// operation and commits the returned deltas in the same transaction.
type Snapshot struct {
	UserID  uuid.UUID
	Balance int
	Lots    []Lot
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
