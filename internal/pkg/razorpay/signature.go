package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// BuildPaymentSignaturePayload builds the string Razorpay signs for a
// checkout callback: "order_id|payment_id".
func BuildPaymentSignaturePayload(gatewayOrderID, gatewayPaymentID string) string {
	return gatewayOrderID + "|" + gatewayPaymentID
}

// Sign computes the hex-encoded HMAC-SHA256 of payload with the given secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares an expected and received hex signature in
// constant time to avoid timing side-channels.
func VerifySignature(expectedHex, receivedHex string) bool {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// VerifyPaymentSignature validates a checkout callback signature.
// Signature format: HMAC-SHA256(order_id|payment_id, key_secret)
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, keySecret string) bool {
	if keySecret == "" || signature == "" {
		return false
	}
	expected := Sign([]byte(BuildPaymentSignaturePayload(gatewayOrderID, gatewayPaymentID)), keySecret)
	return VerifySignature(expected, signature)
}

// VerifyWebhookSignature validates the X-Razorpay-Signature header against
// the raw webhook body. Uses the webhook secret, not the key secret.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	if webhookSecret == "" || signature == "" {
		return false
	}
	expected := Sign(body, webhookSecret)
	return VerifySignature(expected, signature)
}
