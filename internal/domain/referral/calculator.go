package referral

// DefaultBonusPercent is the share of the referee's first purchase paid
// out to each side of the referral.
const DefaultBonusPercent = 20

// Award is the bonus pair produced by a completed referral
type Award struct {
	ReferrerBonus int
	RefereeBonus  int
}

// BonusFor computes the bonus for a purchase of the given size, rounding
// down. A four credit purchase at 20 percent awards nothing.
func BonusFor(purchasedCredits, percent int) int {
	if purchasedCredits <= 0 || percent <= 0 {
		return 0
	}
	return purchasedCredits * percent / 100
}

// Evaluate decides whether a purchase completes a referral. It returns
// nil unless the record is still pending, which is what makes the payout
// a once-only event: the first completed purchase flips the status and
// every later purchase sees a completed record.
func Evaluate(ref *Referral, purchasedCredits, percent int) *Award {
	if ref == nil || ref.Status != StatusPending {
		return nil
	}
	bonus := BonusFor(purchasedCredits, percent)
	return &Award{ReferrerBonus: bonus, RefereeBonus: bonus}
}
