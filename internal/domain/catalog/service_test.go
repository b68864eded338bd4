package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courseforge/billing-api/internal/domain/catalog"
)

type fakeRepo struct {
	tiers []catalog.PricingTier
	costs []catalog.CreditCost
	err   error
}

func (f *fakeRepo) GetTierByID(_ context.Context, id string) (*catalog.PricingTier, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.tiers {
		if f.tiers[i].ID == id && f.tiers[i].IsActive {
			return &f.tiers[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListTiers(_ context.Context) ([]catalog.PricingTier, error) {
	return f.tiers, f.err
}

func (f *fakeRepo) ListCreditCosts(_ context.Context) ([]catalog.CreditCost, error) {
	return f.costs, f.err
}

func testTier(id string, credits int, amountMinor int64) catalog.PricingTier {
	return catalog.PricingTier{
		ID:          id,
		Name:        id,
		Credits:     credits,
		AmountMinor: amountMinor,
		Currency:    "INR",
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
}

func TestGetTier(t *testing.T) {
	repo := &fakeRepo{tiers: []catalog.PricingTier{testTier("starter", 100, 49900)}}
	svc := catalog.NewService(repo)

	tier, err := svc.GetTier(context.Background(), "starter")
	if err != nil {
		t.Fatalf("GetTier: %v", err)
	}
	if tier.Credits != 100 || tier.AmountMinor != 49900 {
		t.Errorf("tier = %+v", tier)
	}
}

func TestGetTierNotFound(t *testing.T) {
	svc := catalog.NewService(&fakeRepo{})
	if _, err := svc.GetTier(context.Background(), "missing"); !errors.Is(err, catalog.ErrTierNotFound) {
		t.Fatalf("err = %v, want ErrTierNotFound", err)
	}
}

func TestGetTierRepositoryFailure(t *testing.T) {
	svc := catalog.NewService(&fakeRepo{err: errors.New("db down")})
	if _, err := svc.GetTier(context.Background(), "starter"); !errors.Is(err, catalog.ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}
}

func TestCostFor(t *testing.T) {
	repo := &fakeRepo{costs: []catalog.CreditCost{
		{Category: catalog.CostSection, Credits: 5},
		{Category: catalog.CostQuiz, Credits: 3},
	}}
	svc := catalog.NewService(repo)

	credits, err := svc.CostFor(context.Background(), catalog.CostQuiz)
	if err != nil {
		t.Fatalf("CostFor: %v", err)
	}
	if credits != 3 {
		t.Errorf("credits = %d, want 3", credits)
	}

	if _, err := svc.CostFor(context.Background(), catalog.CostCategory("video")); !errors.Is(err, catalog.ErrCostNotFound) {
		t.Fatalf("err = %v, want ErrCostNotFound", err)
	}
}

func TestListCreditCostsRejectsMalformedRows(t *testing.T) {
	cases := []struct {
		name string
		cost catalog.CreditCost
	}{
		{"category outside the closed set", catalog.CreditCost{Category: "hologram", Credits: 2}},
		{"non-positive credits", catalog.CreditCost{Category: catalog.CostSection, Credits: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := catalog.NewService(&fakeRepo{costs: []catalog.CreditCost{tc.cost}})
			if _, err := svc.ListCreditCosts(context.Background()); !errors.Is(err, catalog.ErrInternal) {
				t.Fatalf("err = %v, want ErrInternal", err)
			}
		})
	}
}
