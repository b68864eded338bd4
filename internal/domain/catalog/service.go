package catalog

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/courseforge/billing-api/internal/pkg/validator"
)

// Service answers pricing questions for the payment flow. Tier amounts
// and credit grants always come from here, never from client input.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetTier resolves an active pricing tier by id.
func (s *Service) GetTier(ctx context.Context, id string) (*PricingTier, error) {
	tier, err := s.repo.GetTierByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("tier_id", id).Msg("failed to load pricing tier")
		return nil, ErrInternal
	}
	if tier == nil {
		return nil, ErrTierNotFound
	}
	// a malformed tier row must never reach the gateway
	if fields := validator.Validate(tier); fields != nil {
		log.Error().Str("tier_id", id).Interface("fields", fields).Msg("pricing tier failed validation")
		return nil, ErrInternal
	}
	return tier, nil
}

func (s *Service) ListTiers(ctx context.Context) ([]PricingTier, error) {
	tiers, err := s.repo.ListTiers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list pricing tiers")
		return nil, ErrInternal
	}
	return tiers, nil
}

func (s *Service) ListCreditCosts(ctx context.Context) ([]CreditCost, error) {
	costs, err := s.repo.ListCreditCosts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list credit costs")
		return nil, ErrInternal
	}
	// the category set is closed; a row outside it must never price a spend
	for i := range costs {
		if fields := validator.Validate(costs[i]); fields != nil {
			log.Error().Str("category", string(costs[i].Category)).Interface("fields", fields).Msg("credit cost failed validation")
			return nil, ErrInternal
		}
	}
	return costs, nil
}

// CostFor returns the credit price for one generation action.
func (s *Service) CostFor(ctx context.Context, category CostCategory) (int, error) {
	costs, err := s.ListCreditCosts(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range costs {
		if c.Category == category {
			return c.Credits, nil
		}
	}
	return 0, ErrCostNotFound
}
