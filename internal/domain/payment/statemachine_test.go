package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var smNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pendingOrder() *Order {
	return &Order{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		GatewayOrderID: "order_ABC123",
		Credits:        100,
		Status:         StatusPending,
		CreatedAt:      smNow,
		UpdatedAt:      smNow,
	}
}

func TestMarkCaptured(t *testing.T) {
	o := pendingOrder()

	changed, err := MarkCaptured(o, "pay_XYZ", smNow)
	if err != nil || !changed {
		t.Fatalf("MarkCaptured = (%v, %v), want (true, nil)", changed, err)
	}
	if o.Status != StatusCaptured || o.GatewayPaymentID.String != "pay_XYZ" {
		t.Errorf("order = %+v", o)
	}
}

func TestMarkCapturedIdempotent(t *testing.T) {
	o := pendingOrder()
	if _, err := MarkCaptured(o, "pay_XYZ", smNow); err != nil {
		t.Fatal(err)
	}

	changed, err := MarkCaptured(o, "pay_XYZ", smNow)
	if err != nil {
		t.Fatalf("replayed capture errored: %v", err)
	}
	if changed {
		t.Error("replayed capture reported a change")
	}
}

func TestMarkCapturedConflict(t *testing.T) {
	o := pendingOrder()
	if _, err := MarkCaptured(o, "pay_XYZ", smNow); err != nil {
		t.Fatal(err)
	}

	if _, err := MarkCaptured(o, "pay_OTHER", smNow); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("err = %v, want ErrOrderConflict", err)
	}
	// conflicting signal must not disturb the recorded payment
	if o.GatewayPaymentID.String != "pay_XYZ" || o.Status != StatusCaptured {
		t.Errorf("order mutated by conflicting capture: %+v", o)
	}
}

func TestMarkCapturedEmptyPaymentID(t *testing.T) {
	if _, err := MarkCaptured(pendingOrder(), "", smNow); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("err = %v, want ErrOrderConflict", err)
	}
}

func TestMarkCapturedOnFailedOrder(t *testing.T) {
	o := pendingOrder()
	if _, err := MarkFailed(o, "card declined", smNow); err != nil {
		t.Fatal(err)
	}
	if _, err := MarkCaptured(o, "pay_XYZ", smNow); !errors.Is(err, ErrOrderState) {
		t.Fatalf("err = %v, want ErrOrderState", err)
	}
}

func TestCompleteCreditsExactlyOnce(t *testing.T) {
	o := pendingOrder()
	if _, err := MarkCaptured(o, "pay_XYZ", smNow); err != nil {
		t.Fatal(err)
	}

	credited, err := Complete(o, smNow)
	if err != nil || !credited {
		t.Fatalf("Complete = (%v, %v), want (true, nil)", credited, err)
	}
	if o.Status != StatusCompleted || !o.CompletedAt.Valid {
		t.Errorf("order = %+v", o)
	}

	// the racing second signal sees completed and must not credit again
	credited, err = Complete(o, smNow.Add(time.Second))
	if err != nil {
		t.Fatalf("replayed complete errored: %v", err)
	}
	if credited {
		t.Error("replayed complete credited a second time")
	}
}

func TestCompleteRequiresCapture(t *testing.T) {
	if _, err := Complete(pendingOrder(), smNow); !errors.Is(err, ErrOrderState) {
		t.Fatalf("err = %v, want ErrOrderState", err)
	}
}

func TestWebhookAndCallbackRace(t *testing.T) {
	// both completion signals carry the same payment id; whichever runs
	// second under the row lock must be a pure no-op
	o := pendingOrder()

	applySignal := func() (bool, error) {
		if _, err := MarkCaptured(o, "pay_XYZ", smNow); err != nil {
			return false, err
		}
		return Complete(o, smNow)
	}

	first, err := applySignal()
	if err != nil || !first {
		t.Fatalf("first signal = (%v, %v)", first, err)
	}
	second, err := applySignal()
	if err != nil {
		t.Fatalf("second signal errored: %v", err)
	}
	if second {
		t.Error("second signal credited again")
	}
}

func TestMarkFailed(t *testing.T) {
	o := pendingOrder()

	changed, err := MarkFailed(o, "card declined", smNow)
	if err != nil || !changed {
		t.Fatalf("MarkFailed = (%v, %v)", changed, err)
	}
	if o.Status != StatusFailed || o.FailureReason.String != "card declined" {
		t.Errorf("order = %+v", o)
	}

	// retried failure webhook
	changed, err = MarkFailed(o, "card declined", smNow)
	if err != nil || changed {
		t.Errorf("replayed failure = (%v, %v), want (false, nil)", changed, err)
	}
}

func TestMarkFailedAfterCompletion(t *testing.T) {
	o := pendingOrder()
	if _, err := MarkCaptured(o, "pay_XYZ", smNow); err != nil {
		t.Fatal(err)
	}
	if _, err := Complete(o, smNow); err != nil {
		t.Fatal(err)
	}

	if _, err := MarkFailed(o, "late failure", smNow); !errors.Is(err, ErrOrderState) {
		t.Fatalf("err = %v, want ErrOrderState", err)
	}
	if o.Status != StatusCompleted {
		t.Errorf("status = %s, want completed untouched", o.Status)
	}
}

func TestMarkRefunded(t *testing.T) {
	o := pendingOrder()
	if _, err := MarkCaptured(o, "pay_XYZ", smNow); err != nil {
		t.Fatal(err)
	}
	if _, err := Complete(o, smNow); err != nil {
		t.Fatal(err)
	}

	changed, err := MarkRefunded(o, smNow)
	if err != nil || !changed {
		t.Fatalf("MarkRefunded = (%v, %v)", changed, err)
	}
	if o.Status != StatusRefunded {
		t.Errorf("status = %s", o.Status)
	}

	// retried refund webhook
	changed, err = MarkRefunded(o, smNow)
	if err != nil || changed {
		t.Errorf("replayed refund = (%v, %v), want (false, nil)", changed, err)
	}
}

func TestMarkRefundedRequiresCompletion(t *testing.T) {
	for _, setup := range []func() *Order{
		pendingOrder,
		func() *Order {
			o := pendingOrder()
			MarkCaptured(o, "pay_XYZ", smNow)
			return o
		},
		func() *Order {
			o := pendingOrder()
			MarkFailed(o, "declined", smNow)
			return o
		},
	} {
		o := setup()
		if _, err := MarkRefunded(o, smNow); !errors.Is(err, ErrOrderState) {
			t.Errorf("status %s: err = %v, want ErrOrderState", o.Status, err)
		}
	}
}
