package ledger

import "errors"

var (
	// ErrInsufficientCredits is returned when the lots cannot cover a debit
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrAccountNotFound is returned when no account row exists for a user
	ErrAccountNotFound = errors.New("account not found")

	ErrInternal = errors.New("internal error")
)
