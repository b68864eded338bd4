package referral

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/courseforge/billing-api/internal/domain/ledger"
)

type Service struct {
	repo         *Repository
	ledger       *ledger.Service
	bonusPercent int
}

func NewService(repo *Repository, ledgerSvc *ledger.Service, bonusPercent int) *Service {
	if bonusPercent <= 0 {
		bonusPercent = DefaultBonusPercent
	}
	return &Service{repo: repo, ledger: ledgerSvc, bonusPercent: bonusPercent}
}

// GetOrCreateCode returns the user's shareable referral code, minting
// one on first use.
func (s *Service) GetOrCreateCode(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := s.repo.GetCodeByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up referral code")
		return "", ErrInternal
	}
	if code != "" {
		return code, nil
	}

	if err := s.repo.CreateCode(ctx, userID, newCode()); err != nil {
		log.Error().Err(err).Msg("failed to mint referral code")
		return "", ErrInternal
	}
	// re-read so a concurrent mint for the same user converges on the
	// code that won the insert
	code, err = s.repo.GetCodeByUserID(ctx, userID)
	if err != nil || code == "" {
		log.Error().Err(err).Msg("failed to re-read referral code")
		return "", ErrInternal
	}
	return code, nil
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// RegisterSignup records that refereeID signed up through a referrer's
// code. Unknown codes, self referrals and second referrals for the same
// referee are rejected.
func (s *Service) RegisterSignup(ctx context.Context, refereeID uuid.UUID, code string) (*Referral, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotEligible
	}

	referrerID, err := s.repo.GetUserIDByCode(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve referral code")
		return nil, ErrInternal
	}
	if referrerID == uuid.Nil || referrerID == refereeID {
		return nil, ErrNotEligible
	}

	existing, err := s.repo.GetByRefereeID(ctx, refereeID)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up referral")
		return nil, ErrInternal
	}
	if existing != nil {
		return nil, ErrNotEligible
	}

	ref := &Referral{
		ID:         uuid.New(),
		ReferrerID: referrerID,
		RefereeID:  refereeID,
		Code:       code,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		// unique constraint on referee_id closes the race between two
		// concurrent signups for the same referee
		log.Warn().Err(err).Str("referee_id", refereeID.String()).Msg("referral signup rejected")
		return nil, ErrNotEligible
	}

	log.Info().
		Str("referrer_id", referrerID.String()).
		Str("referee_id", refereeID.String()).
		Msg("referral registered")
	return ref, nil
}

// OnPurchaseCompletedTx pays out a pending referral inside the caller's
// transaction, alongside the purchase credit itself. Returns the user ids
// whose balances changed so the caller can drop their cache entries after
// commit. A referee without a pending referral is a no-op.
func (s *Service) OnPurchaseCompletedTx(ctx context.Context, tx *sqlx.Tx, refereeID uuid.UUID, orderID uuid.UUID, purchasedCredits int) ([]uuid.UUID, error) {
	ref, err := s.repo.GetByRefereeIDTx(ctx, tx, refereeID)
	if err != nil {
		return nil, ErrInternal
	}

	award := Evaluate(ref, purchasedCredits, s.bonusPercent)
	if award == nil {
		return nil, nil
	}

	affected := make([]uuid.UUID, 0, 2)
	// a tiny first purchase can floor to a zero bonus; the referral still
	// completes, it just pays nothing
	if award.RefereeBonus > 0 {
		if _, err := s.ledger.BonusTx(ctx, tx, ref.RefereeID, award.RefereeBonus, ref.ID); err != nil {
			return nil, err
		}
		affected = append(affected, ref.RefereeID)
	}
	if award.ReferrerBonus > 0 {
		if _, err := s.ledger.ReferralRewardTx(ctx, tx, ref.ReferrerID, award.ReferrerBonus, ref.ID); err != nil {
			return nil, err
		}
		affected = append(affected, ref.ReferrerID)
	}

	if err := s.repo.CompleteTx(ctx, tx, ref.ID, *award, orderID, purchasedCredits, time.Now()); err != nil {
		return nil, ErrInternal
	}

	log.Info().
		Str("referral_id", ref.ID.String()).
		Str("order_id", orderID.String()).
		Int("bonus", award.ReferrerBonus).
		Msg("referral completed")
	return affected, nil
}

func (s *Service) GetStats(ctx context.Context, referrerID uuid.UUID) (*Stats, error) {
	stats, err := s.repo.GetStats(ctx, referrerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load referral stats")
		return nil, ErrInternal
	}
	return stats, nil
}
