package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrOrderNotFound    = errors.New("payment order not found")
	ErrOrderConflict    = errors.New("conflicting payment for order")
	ErrOrderState       = errors.New("invalid order state for transition")
	ErrInternal         = errors.New("internal payment error")
)
