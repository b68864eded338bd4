package account

import "errors"

var (
	// ErrAccountNotFound is returned when no account row exists for a user
	ErrAccountNotFound = errors.New("account not found")
)
