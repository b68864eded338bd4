package catalog

import "errors"

var (
	ErrTierNotFound = errors.New("pricing tier not found")
	ErrCostNotFound = errors.New("credit cost not found")
	ErrInternal     = errors.New("internal catalog error")
)
