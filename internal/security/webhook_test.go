package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookSignatureRoundTrip(t *testing.T) {
	sig := ComputeWebhookSignature("secret", "stripe", "c1", "success", "pi_1", "2026-03-15T12:00:00Z", "n-1")
	assert.NotEmpty(t, sig)
	assert.True(t, ValidateWebhookSignature("secret", sig, "stripe", "c1", "success", "pi_1", "2026-03-15T12:00:00Z", "n-1"))
}

func TestWebhookSignatureRejectsTampering(t *testing.T) {
	sig := ComputeWebhookSignature("secret", "stripe", "c1", "success", "pi_1", "2026-03-15T12:00:00Z", "n-1")

	assert.False(t, ValidateWebhookSignature("secret", sig, "stripe", "c1", "cancel", "pi_1", "2026-03-15T12:00:00Z", "n-1"))
	assert.False(t, ValidateWebhookSignature("secret", sig, "razorpay", "c1", "success", "pi_1", "2026-03-15T12:00:00Z", "n-1"))
	assert.False(t, ValidateWebhookSignature("other", sig, "stripe", "c1", "success", "pi_1", "2026-03-15T12:00:00Z", "n-1"))
	assert.False(t, ValidateWebhookSignature("secret", sig+"x", "stripe", "c1", "success", "pi_1", "2026-03-15T12:00:00Z", "n-1"))
}

// Field boundaries must not be forgeable by shifting content between
// adjacent fields.
func TestWebhookSignatureFieldBoundaries(t *testing.T) {
	a := ComputeWebhookSignature("secret", "stripe", "c1x", "success", "pi_1", "d", "n")
	b := ComputeWebhookSignature("secret", "stripe", "c1", "xsuccess", "pi_1", "d", "n")
	assert.NotEqual(t, a, b)
}
