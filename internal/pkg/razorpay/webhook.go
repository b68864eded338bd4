package razorpay

import (
	"encoding/json"
	"fmt"
)

// Webhook event types handled by the reconciliation flow
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
)

// PaymentEntity is the payment object nested in webhook payloads
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
}

// RefundEntity is the refund object nested in refund.created payloads
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type entityWrapper[T any] struct {
	Entity T `json:"entity"`
}

// Event represents a parsed webhook event
type Event struct {
	Kind    string
	Payment *PaymentEntity
	Refund  *RefundEntity
}

// ParseWebhook parses a raw webhook body into a structured event.
// The body must already be signature-verified by the caller.
func ParseWebhook(body []byte) (*Event, error) {
	var raw struct {
		Event   string `json:"event"`
		Payload struct {
			Payment *entityWrapper[PaymentEntity] `json:"payment"`
			Refund  *entityWrapper[RefundEntity]  `json:"refund"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	if raw.Event == "" {
		return nil, fmt.Errorf("event type is required")
	}

	event := &Event{Kind: raw.Event}
	if raw.Payload.Payment != nil {
		payment := raw.Payload.Payment.Entity
		event.Payment = &payment
	}
	if raw.Payload.Refund != nil {
		refund := raw.Payload.Refund.Entity
		event.Refund = &refund
	}

	switch raw.Event {
	case EventPaymentCaptured, EventPaymentFailed:
		if event.Payment == nil || event.Payment.OrderID == "" {
			return nil, fmt.Errorf("payment entity with order_id is required for %s", raw.Event)
		}
	case EventRefundCreated:
		if event.Refund == nil || event.Refund.PaymentID == "" {
			return nil, fmt.Errorf("refund entity with payment_id is required for %s", raw.Event)
		}
	}

	return event, nil
}
