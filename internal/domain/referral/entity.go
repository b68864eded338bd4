package referral

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status of a referral record
type Status string

const (
	StatusPending   Status = "pending"   // referee signed up, no completed purchase yet
	StatusCompleted Status = "completed" // bonuses credited on the referee's first purchase
	StatusExpired   Status = "expired"
)

// Referral links a referrer to the user they brought in. The record is
// created at signup and completed exactly once, on the referee's first
// completed credit purchase.
type Referral struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	ReferrerID           uuid.UUID     `db:"referrer_id" json:"referrerId"`
	RefereeID            uuid.UUID     `db:"referee_id" json:"refereeId"`
	Code                 string        `db:"code" json:"code"`
	Status               Status        `db:"status" json:"status"`
	ReferrerBonus        int           `db:"referrer_bonus" json:"referrerBonus"`
	RefereeBonus         int           `db:"referee_bonus" json:"refereeBonus"`
	FirstPurchaseCredits int           `db:"first_purchase_credits" json:"firstPurchaseCredits"`
	FirstPurchaseOrderID uuid.NullUUID `db:"first_purchase_order_id" json:"firstPurchaseOrderId,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"createdAt"`
	CompletedAt          sql.NullTime  `db:"completed_at" json:"completedAt,omitempty"`
}

// Stats summarizes a referrer's results
type Stats struct {
	TotalReferred  int `db:"total_referred" json:"totalReferred"`
	TotalCompleted int `db:"total_completed" json:"totalCompleted"`
	CreditsEarned  int `db:"credits_earned" json:"creditsEarned"`
}
