package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status of a payment order. Orders only ever move forward:
// pending -> captured -> completed, pending/captured -> failed,
// completed -> refunded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCaptured  Status = "captured"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Order tracks one credit purchase from gateway order creation through
// crediting. Amounts are in the currency's minor unit; the credits and
// amount always come from the pricing tier, never from the client.
type Order struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	UserID           uuid.UUID      `db:"user_id" json:"userId"`
	TierID           string         `db:"tier_id" json:"tierId"`
	GatewayOrderID   string         `db:"gateway_order_id" json:"gatewayOrderId"`
	GatewayPaymentID sql.NullString `db:"gateway_payment_id" json:"gatewayPaymentId,omitempty"`
	Credits          int            `db:"credits" json:"credits"`
	AmountMinor      int64          `db:"amount_minor" json:"amountMinor"`
	Currency         string         `db:"currency" json:"currency"`
	Status           Status         `db:"status" json:"status"`
	FailureReason    sql.NullString `db:"failure_reason" json:"failureReason,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
	CompletedAt      sql.NullTime   `db:"completed_at" json:"completedAt,omitempty"`
}
