package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultLotExpiryDays is how long purchased and bonus credits stay
// spendable before an expiration sweep reclaims them.
const DefaultLotExpiryDays = 365

// LotDelta describes how one lot changed during a debit.
type LotDelta struct {
	LotID     uuid.UUID
	Consumed  int
	Remaining int
}

// CreditResult is the outcome of an operation that adds credits: the new
// balance, the ledger transaction to append and the lot to create.
type CreditResult struct {
	NewBalance  int
	Transaction Transaction
	NewLot      Lot
}

// DebitResult is the outcome of an operation that removes credits.
type DebitResult struct {
	NewBalance   int
	Transaction  Transaction
	ConsumedLots []LotDelta
}

// ExpirationResult is the outcome of an expiration sweep. Transactions
// and ExpiredLots are empty when nothing is due.
type ExpirationResult struct {
	NewBalance   int
	Transactions []Transaction
	ExpiredLots  []LotDelta
}

// ApplyPurchase credits the account with freshly purchased credits and
// opens a new lot expiring expiryDays from now.
func ApplyPurchase(snap Snapshot, amount int, expiryDays int, paymentID uuid.UUID, now time.Time) (*CreditResult, error) {
	return applyCredit(snap, amount, TxTypePurchase, expiryDays, now, "credit purchase", related{paymentID: paymentID})
}

// ApplyBonus credits the referee's side of a completed referral.
func ApplyBonus(snap Snapshot, amount int, referralID uuid.UUID, expiryDays int, now time.Time) (*CreditResult, error) {
	return applyCredit(snap, amount, TxTypeBonus, expiryDays, now, "referral signup bonus", related{referralID: referralID})
}

// ApplyReferralReward credits the referrer's side of a completed referral.
func ApplyReferralReward(snap Snapshot, amount int, referralID uuid.UUID, expiryDays int, now time.Time) (*CreditResult, error) {
	return applyCredit(snap, amount, TxTypeReferral, expiryDays, now, "referral reward", related{referralID: referralID})
}

// ApplyGrant credits an administrative or promotional grant.
func ApplyGrant(snap Snapshot, amount int, expiryDays int, description string, now time.Time) (*CreditResult, error) {
	if description == "" {
		description = "credit grant"
	}
	return applyCredit(snap, amount, TxTypeEarned, expiryDays, now, description, related{})
}

// ApplySpend debits amount credits for a course generation action.
// Lots are consumed in ascending ExpiresAt order. If the unexpired lots
// cannot cover the amount the whole operation fails and the snapshot is
// left untouched; there is no partial debit.
func ApplySpend(snap Snapshot, amount int, courseID uuid.UUID, now time.Time) (*DebitResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	lots := spendableLots(snap.Lots, now)
	if lotTotal(lots) < amount {
		return nil, ErrInsufficientCredits
	}

	deltas := consumeFIFO(lots, amount)
	newBalance := snap.Balance - amount

	return &DebitResult{
		NewBalance: newBalance,
		Transaction: Transaction{
			ID:              uuid.New(),
			UserID:          snap.UserID,
			Amount:          -amount,
			Type:            TxTypeSpent,
			Description:     "course generation spend",
			BalanceAfter:    newBalance,
			RelatedCourseID: uuid.NullUUID{UUID: courseID, Valid: courseID != uuid.Nil},
			CreatedAt:       now,
		},
		ConsumedLots: deltas,
	}, nil
}

// ApplyExpiration zeroes every lot whose expiry has passed with credits
// remaining, emitting one expiration transaction per lot. Running the
// sweep again with the same now is a no-op once the lots are zeroed.
func ApplyExpiration(snap Snapshot, now time.Time) *ExpirationResult {
	due := make([]Lot, 0, len(snap.Lots))
	for _, lot := range snap.Lots {
		if lot.Remaining > 0 && !lot.ExpiresAt.After(now) {
			due = append(due, lot)
		}
	}
	sortLots(due)

	result := &ExpirationResult{NewBalance: snap.Balance}
	balance := snap.Balance
	for i, lot := range due {
		balance -= lot.Remaining
		// transactions within one sweep are stamped a microsecond apart
		// so replay by created_at sees them in emission order; the random
		// ids cannot be trusted to break a timestamp tie
		result.Transactions = append(result.Transactions, Transaction{
			ID:           uuid.New(),
			UserID:       snap.UserID,
			Amount:       -lot.Remaining,
			Type:         TxTypeExpiration,
			Description:  fmt.Sprintf("%d unused credits expired", lot.Remaining),
			BalanceAfter: balance,
			CreatedAt:    now.Add(time.Duration(i) * time.Microsecond),
		})
		result.ExpiredLots = append(result.ExpiredLots, LotDelta{
			LotID:    lot.ID,
			Consumed: lot.Remaining,
		})
	}
	result.NewBalance = balance
	return result
}

// ApplyRefund debits credits back after a gateway refund. The debit is
// capped at the current balance so the account never goes negative; a
// shortfall is recorded in the transaction description.
func ApplyRefund(snap Snapshot, amount int, paymentID uuid.UUID, now time.Time) (*DebitResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	lots := remainingLots(snap.Lots)
	available := lotTotal(lots)
	if available <= 0 {
		return nil, ErrInsufficientCredits
	}

	debit := amount
	description := fmt.Sprintf("refund for payment %s", paymentID)
	if debit > available {
		debit = available
		description = fmt.Sprintf("partial refund for payment %s: reclaimed %d of %d credits", paymentID, debit, amount)
	}

	deltas := consumeFIFO(lots, debit)
	newBalance := snap.Balance - debit

	return &DebitResult{
		NewBalance: newBalance,
		Transaction: Transaction{
			ID:               uuid.New(),
			UserID:           snap.UserID,
			Amount:           -debit,
			Type:             TxTypeRefund,
			Description:      description,
			BalanceAfter:     newBalance,
			RelatedPaymentID: uuid.NullUUID{UUID: paymentID, Valid: paymentID != uuid.Nil},
			CreatedAt:        now,
		},
		ConsumedLots: deltas,
	}, nil
}

type related struct {
	paymentID  uuid.UUID
	referralID uuid.UUID
}

func applyCredit(snap Snapshot, amount int, txType TxType, expiryDays int, now time.Time, description string, rel related) (*CreditResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if expiryDays <= 0 {
		expiryDays = DefaultLotExpiryDays
	}

	expiresAt := now.AddDate(0, 0, expiryDays)
	newBalance := snap.Balance + amount

	lot := Lot{
		ID:             uuid.New(),
		UserID:         snap.UserID,
		InitialCredits: amount,
		Remaining:      amount,
		SourceType:     txType,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
	}

	tx := Transaction{
		ID:           uuid.New(),
		UserID:       snap.UserID,
		Amount:       amount,
		Type:         txType,
		Description:  description,
		BalanceAfter: newBalance,
		CreatedAt:    now,
	}
	tx.ExpiresAt.Time, tx.ExpiresAt.Valid = expiresAt, true
	if rel.paymentID != uuid.Nil {
		tx.RelatedPaymentID = uuid.NullUUID{UUID: rel.paymentID, Valid: true}
	}
	if rel.referralID != uuid.Nil {
		tx.RelatedReferralID = uuid.NullUUID{UUID: rel.referralID, Valid: true}
	}

	return &CreditResult{NewBalance: newBalance, Transaction: tx, NewLot: lot}, nil
}

// spendableLots returns lots still holding credits that have not expired
// at the given instant. Expired-but-unswept lots stay out of reach of
// spends; the sweep reclaims them.
func spendableLots(lots []Lot, now time.Time) []Lot {
	out := make([]Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.Remaining > 0 && lot.ExpiresAt.After(now) {
			out = append(out, lot)
		}
	}
	sortLots(out)
	return out
}

func remainingLots(lots []Lot) []Lot {
	out := make([]Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.Remaining > 0 {
			out = append(out, lot)
		}
	}
	sortLots(out)
	return out
}

func sortLots(lots []Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].ExpiresAt.Equal(lots[j].ExpiresAt) {
			return lots[i].ExpiresAt.Before(lots[j].ExpiresAt)
		}
		return lots[i].CreatedAt.Before(lots[j].CreatedAt)
	})
}

func lotTotal(lots []Lot) int {
	total := 0
	for _, lot := range lots {
		total += lot.Remaining
	}
	return total
}

// consumeFIFO walks lots in order, draining each until amount is covered.
// Callers must have verified that the lots can cover the amount.
func consumeFIFO(lots []Lot, amount int) []LotDelta {
	deltas := make([]LotDelta, 0, len(lots))
	left := amount
	for _, lot := range lots {
		if left == 0 {
			break
		}
		take := lot.Remaining
		if take > left {
			take = left
		}
		deltas = append(deltas, LotDelta{
			LotID:     lot.ID,
			Consumed:  take,
			Remaining: lot.Remaining - take,
		})
		left -= take
	}
	return deltas
}
