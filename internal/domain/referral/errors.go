package referral

import "errors"

var (
	ErrNotEligible = errors.New("referral not eligible")
	ErrInternal    = errors.New("internal referral error")
)
