package razorpay

import "testing"

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "test_secret"
	sig := Sign([]byte(BuildPaymentSignaturePayload("order_abc", "pay_xyz")), secret)

	if !VerifyPaymentSignature("order_abc", "pay_xyz", sig, secret) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyPaymentSignature_Tampered(t *testing.T) {
	secret := "test_secret"
	sig := Sign([]byte(BuildPaymentSignaturePayload("order_abc", "pay_xyz")), secret)

	// Flip a single hex digit
	tampered := []byte(sig)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	if VerifyPaymentSignature("order_abc", "pay_xyz", string(tampered), secret) {
		t.Fatal("expected tampered signature to be rejected")
	}
	if VerifyPaymentSignature("order_abc", "pay_other", sig, secret) {
		t.Fatal("expected signature over different payment id to be rejected")
	}
}

func TestVerifyPaymentSignature_EmptySecretOrSignature(t *testing.T) {
	if VerifyPaymentSignature("order_abc", "pay_xyz", "deadbeef", "") {
		t.Fatal("expected verification to fail with empty secret")
	}
	if VerifyPaymentSignature("order_abc", "pay_xyz", "", "secret") {
		t.Fatal("expected verification to fail with empty signature")
	}
}

func TestVerifySignature_CaseInsensitive(t *testing.T) {
	if !VerifySignature("aBcD12", "ABcd12") {
		t.Fatal("expected case-insensitive constant-time comparison")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := Sign(body, "webhook_secret")

	if !VerifyWebhookSignature(body, sig, "webhook_secret") {
		t.Fatal("expected webhook signature to verify")
	}
	if VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig, "webhook_secret") {
		t.Fatal("expected signature over different body to be rejected")
	}
}
