package payment

import (
	"database/sql"
	"time"
)

// The state machine below is deliberately pure: each transition mutates
// the order in memory and reports whether anything changed. Callers hold
// the order's row lock, apply transitions and persist the result, so a
// retried webhook or a client callback racing the webhook collapses into
// a no-op instead of a double credit.

// MarkCaptured records the gateway payment id against the order. Seeing
// the same payment id again is idempotent; a different payment id for an
// order that already has one is a conflict and must not be absorbed.
func MarkCaptured(o *Order, gatewayPaymentID string, now time.Time) (bool, error) {
	if gatewayPaymentID == "" {
		return false, ErrOrderConflict
	}

	switch o.Status {
	case StatusPending:
		o.GatewayPaymentID = sql.NullString{String: gatewayPaymentID, Valid: true}
		o.Status = StatusCaptured
		o.UpdatedAt = now
		return true, nil
	case StatusCaptured, StatusCompleted, StatusRefunded:
		if o.GatewayPaymentID.Valid && o.GatewayPaymentID.String == gatewayPaymentID {
			return false, nil
		}
		return false, ErrOrderConflict
	case StatusFailed:
		return false, ErrOrderState
	default:
		return false, ErrOrderState
	}
}

// Complete moves a captured order to completed. The bool result is the
// single signal to credit the ledger: true exactly once per order, false
// for every replay.
func Complete(o *Order, now time.Time) (bool, error) {
	switch o.Status {
	case StatusCaptured:
		o.Status = StatusCompleted
		o.UpdatedAt = now
		o.CompletedAt = sql.NullTime{Time: now, Valid: true}
		return true, nil
	case StatusCompleted, StatusRefunded:
		return false, nil
	default:
		return false, ErrOrderState
	}
}

// MarkFailed records a gateway failure. Failing an already failed order
// is idempotent; a completed order can no longer fail.
func MarkFailed(o *Order, reason string, now time.Time) (bool, error) {
	switch o.Status {
	case StatusPending, StatusCaptured:
		o.Status = StatusFailed
		o.FailureReason = sql.NullString{String: reason, Valid: reason != ""}
		o.UpdatedAt = now
		return true, nil
	case StatusFailed:
		return false, nil
	default:
		return false, ErrOrderState
	}
}

// MarkRefunded moves a completed order to refunded. Only completed orders
// ever credited anything, so only they have anything to reclaim.
func MarkRefunded(o *Order, now time.Time) (bool, error) {
	switch o.Status {
	case StatusCompleted:
		o.Status = StatusRefunded
		o.UpdatedAt = now
		return true, nil
	case StatusRefunded:
		return false, nil
	default:
		return false, ErrOrderState
	}
}
