package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Repository defines catalog data access
type Repository interface {
	GetTierByID(ctx context.Context, id string) (*PricingTier, error)
	ListTiers(ctx context.Context) ([]PricingTier, error)
	ListCreditCosts(ctx context.Context) ([]CreditCost, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetTierByID(ctx context.Context, id string) (*PricingTier, error) {
	query := `
		SELECT id, name, credits, amount_minor, currency, is_active, created_at
		FROM pricing_tiers
		WHERE id = $1 AND is_active = true
	`
	var tier PricingTier
	err := r.db.GetContext(ctx, &tier, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) ListTiers(ctx context.Context) ([]PricingTier, error) {
	query := `
		SELECT id, name, credits, amount_minor, currency, is_active, created_at
		FROM pricing_tiers
		WHERE is_active = true
		ORDER BY amount_minor
	`
	tiers := make([]PricingTier, 0)
	if err := r.db.SelectContext(ctx, &tiers, query); err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repository) ListCreditCosts(ctx context.Context) ([]CreditCost, error) {
	query := `SELECT category, credits FROM credit_costs ORDER BY category`
	costs := make([]CreditCost, 0)
	if err := r.db.SelectContext(ctx, &costs, query); err != nil {
		return nil, err
	}
	return costs, nil
}
