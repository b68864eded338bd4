package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Service wraps the pure accounting engine with transactional persistence.
// Operations that run standalone (Spend, Grant, ExpireDue) open their own
// database transaction. The Tx-suffixed operations run inside a caller's
// transaction so payment completion and referral rewards land atomically
// with the rows that triggered them.
type Service struct {
	store      *Store
	cache      *BalanceCache
	expiryDays int
}

func NewService(store *Store, cache *BalanceCache, expiryDays int) *Service {
	if expiryDays <= 0 {
		expiryDays = DefaultLotExpiryDays
	}
	return &Service{store: store, cache: cache, expiryDays: expiryDays}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	if balance, ok := s.cache.Get(ctx, userID); ok {
		return balance, nil
	}
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, userID, balance)
	return balance, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, pagination Pagination) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, userID, pagination)
}

// Spend debits credits for course generation work. The whole operation
// holds the account row lock, so two concurrent spends against the same
// account serialize and the second one sees the reduced balance.
func (s *Service) Spend(ctx context.Context, userID uuid.UUID, amount int, courseID uuid.UUID) (*Transaction, error) {
	tx, err := s.store.BeginTxx(ctx)
	if err != nil {
		return nil, ErrInternal
	}
	defer tx.Rollback()

	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	res, err := ApplySpend(snap, amount, courseID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitDebitTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, ErrInternal
	}

	s.cache.Invalidate(ctx, userID)
	log.Info().
		Str("user_id", userID.String()).
		Int("amount", amount).
		Int("balance_after", res.NewBalance).
		Msg("credits spent")
	return &res.Transaction, nil
}

// Grant credits an account outside the purchase flow, for support and
// promotional adjustments.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, amount int, description string) (*Transaction, error) {
	tx, err := s.store.BeginTxx(ctx)
	if err != nil {
		return nil, ErrInternal
	}
	defer tx.Rollback()

	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	res, err := ApplyGrant(snap, amount, s.expiryDays, description, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitCreditTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, ErrInternal
	}

	s.cache.Invalidate(ctx, userID)
	log.Info().
		Str("user_id", userID.String()).
		Int("amount", amount).
		Msg("credits granted")
	return &res.Transaction, nil
}

// PurchaseTx credits purchased credits inside the caller's transaction.
func (s *Service) PurchaseTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, paymentID uuid.UUID) (*CreditResult, error) {
	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	res, err := ApplyPurchase(snap, amount, s.expiryDays, paymentID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitCreditTx(ctx, tx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// BonusTx credits a referee's signup bonus inside the caller's transaction.
func (s *Service) BonusTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, referralID uuid.UUID) (*CreditResult, error) {
	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	res, err := ApplyBonus(snap, amount, referralID, s.expiryDays, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitCreditTx(ctx, tx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ReferralRewardTx credits a referrer's reward inside the caller's transaction.
func (s *Service) ReferralRewardTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, referralID uuid.UUID) (*CreditResult, error) {
	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	res, err := ApplyReferralReward(snap, amount, referralID, s.expiryDays, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitCreditTx(ctx, tx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RefundTx reclaims credits for a refunded payment inside the caller's
// transaction. The reclaim is capped at whatever the account still holds.
func (s *Service) RefundTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, paymentID uuid.UUID) (*DebitResult, error) {
	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	res, err := ApplyRefund(snap, amount, paymentID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitDebitTx(ctx, tx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// InvalidateBalance drops the cached balance after a caller-managed
// transaction commits.
func (s *Service) InvalidateBalance(ctx context.Context, userID uuid.UUID) {
	s.cache.Invalidate(ctx, userID)
}

// ExpireDue sweeps lots past their expiry and writes the matching
// expiration transactions. Each user is processed in its own database
// transaction so one failure does not hold up the rest of the sweep.
// Returns how many users had credits expired.
func (s *Service) ExpireDue(ctx context.Context, now time.Time, batchSize int) (int, error) {
	userIDs, err := s.store.UsersWithExpiredLots(ctx, now, batchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, userID := range userIDs {
		if err := s.expireUser(ctx, userID, now); err != nil {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("expiration sweep failed for user")
			continue
		}
		swept++
	}
	return swept, nil
}

func (s *Service) expireUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	tx, err := s.store.BeginTxx(ctx)
	if err != nil {
		return ErrInternal
	}
	defer tx.Rollback()

	snap, err := s.store.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return err
	}

	res := ApplyExpiration(snap, now)
	if len(res.Transactions) == 0 {
		return nil
	}
	if err := s.store.CommitExpirationTx(ctx, tx, userID, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return ErrInternal
	}

	s.cache.Invalidate(ctx, userID)
	log.Info().
		Str("user_id", userID.String()).
		Int("lots", len(res.ExpiredLots)).
		Int("balance_after", res.NewBalance).
		Msg("expired credits reclaimed")
	return nil
}
