package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Payment providers sign their callbacks over a canonical string of the
// callback fields. Both sides must build the string identically; the field
// order below is part of the contract.
func ComputeWebhookSignature(secret string, provider string, checkoutID string, event string, reference string, date string, nonce string) string {
	data := strings.Join([]string{
		provider,
		checkoutID,
		event,
		reference,
		date,
		nonce,
	}, "\n")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func ValidateWebhookSignature(secret string, signature string, provider string, checkoutID string, event string, reference string, date string, nonce string) bool {
	expected := ComputeWebhookSignature(secret, provider, checkoutID, event, reference, date, nonce)
	return hmac.Equal([]byte(signature), []byte(expected))
}
