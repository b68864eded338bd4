package referral

import (
	"testing"

	"github.com/google/uuid"
)

func TestBonusFor(t *testing.T) {
	tests := []struct {
		name      string
		purchased int
		percent   int
		want      int
	}{
		{"even split", 100, 20, 20},
		{"rounds down", 105, 20, 21},
		{"rounds down below one", 4, 20, 0},
		{"single credit boundary", 5, 20, 1},
		{"zero purchase", 0, 20, 0},
		{"negative purchase", -10, 20, 0},
		{"zero percent", 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BonusFor(tt.purchased, tt.percent); got != tt.want {
				t.Errorf("BonusFor(%d, %d) = %d, want %d", tt.purchased, tt.percent, got, tt.want)
			}
		})
	}
}

func TestEvaluatePendingReferral(t *testing.T) {
	ref := &Referral{ID: uuid.New(), Status: StatusPending}

	award := Evaluate(ref, 100, 20)
	if award == nil {
		t.Fatal("expected an award for a pending referral")
	}
	if award.ReferrerBonus != 20 || award.RefereeBonus != 20 {
		t.Errorf("award = %+v, want 20/20", award)
	}
}

func TestEvaluatePaysOutOnlyOnce(t *testing.T) {
	ref := &Referral{ID: uuid.New(), Status: StatusPending}

	if Evaluate(ref, 50, 20) == nil {
		t.Fatal("first purchase should award")
	}

	// completing the record blocks every later purchase
	ref.Status = StatusCompleted
	if Evaluate(ref, 500, 20) != nil {
		t.Error("completed referral awarded again")
	}
}

func TestEvaluateNoReferral(t *testing.T) {
	if Evaluate(nil, 100, 20) != nil {
		t.Error("nil referral should not award")
	}
	expired := &Referral{ID: uuid.New(), Status: StatusExpired}
	if Evaluate(expired, 100, 20) != nil {
		t.Error("expired referral should not award")
	}
}
