package catalog

import "time"

// CostCategory names a billable course generation action
type CostCategory string

const (
	CostSection      CostCategory = "section"
	CostOutline      CostCategory = "outline"
	CostQuiz         CostCategory = "quiz"
	CostRegeneration CostCategory = "regeneration"
)

// CreditCost is the credit price of one generation action
type CreditCost struct {
	Category CostCategory `db:"category" json:"category" validate:"required,cost_category"`
	Credits  int          `db:"credits" json:"credits" validate:"gt=0"`
}

// PricingTier is a purchasable credit package. Amounts are stored in the
// currency's minor unit (paise for INR), never as floats.
type PricingTier struct {
	ID          string    `db:"id" json:"id" validate:"required"`
	Name        string    `db:"name" json:"name" validate:"required"`
	Credits     int       `db:"credits" json:"credits" validate:"gt=0"`
	AmountMinor int64     `db:"amount_minor" json:"amountMinor" validate:"gt=0"`
	Currency    string    `db:"currency" json:"currency" validate:"currency"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
