package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/config"
	"tradorr/api/internal/models"
	"tradorr/api/internal/security"
)

func testProviders() *Registry {
	cfg := config.ProviderConfig{WebhookSecret: "shhh", PublicKey: "pk_test"}
	return NewRegistry(
		NewStripeProvider(cfg),
		NewRazorpayProvider(cfg),
		NewCryptoProvider(cfg),
	)
}

func TestRegistryResolution(t *testing.T) {
	r := testProviders()

	stripe, ok := r.ByName("stripe")
	require.True(t, ok)
	assert.Equal(t, models.PaymentMethodCard, stripe.Method())

	upi, ok := r.ByMethod(models.PaymentMethodUPI)
	require.True(t, ok)
	assert.Equal(t, "razorpay", upi.Name())

	crypto, ok := r.ByMethod(models.PaymentMethodCrypto)
	require.True(t, ok)
	assert.Equal(t, "crypto", crypto.Name())

	_, ok = r.ByName("paypal")
	assert.False(t, ok)
}

func TestCreateCheckoutHandoff(t *testing.T) {
	r := testProviders()
	plan, ok := catalog.ByID("trader")
	require.True(t, ok)

	for _, method := range []models.PaymentMethod{
		models.PaymentMethodCard,
		models.PaymentMethodUPI,
		models.PaymentMethodCrypto,
	} {
		provider, ok := r.ByMethod(method)
		require.True(t, ok)

		handoff, err := provider.CreateCheckout(context.Background(), plan, "c1", false)
		require.NoError(t, err)
		assert.Equal(t, provider.Name(), handoff.Provider)
		assert.Equal(t, "c1", handoff.CheckoutID)
		assert.NotEmpty(t, handoff.Reference)
		assert.NotEmpty(t, handoff.Params)
	}
}

func TestVerifyCallbackAcceptsFreshSignature(t *testing.T) {
	r := testProviders()
	provider, _ := r.ByName("stripe")

	cb := Callback{
		CheckoutID: "c1",
		Event:      EventSuccess,
		Reference:  "pi_1",
		Date:       time.Now().UTC().Format(time.RFC3339),
		Nonce:      "n-1",
	}
	cb.Signature = security.ComputeWebhookSignature(
		"shhh", "stripe", cb.CheckoutID, cb.Event, cb.Reference, cb.Date, cb.Nonce,
	)

	assert.NoError(t, provider.VerifyCallback(cb))
}

func TestVerifyCallbackRejectsBadDate(t *testing.T) {
	r := testProviders()
	provider, _ := r.ByName("stripe")

	cb := Callback{CheckoutID: "c1", Event: EventSuccess, Date: "yesterday"}
	assert.ErrorIs(t, provider.VerifyCallback(cb), ErrInvalidSignature)
}

func TestVerifyCallbackRejectsFutureDate(t *testing.T) {
	r := testProviders()
	provider, _ := r.ByName("stripe")

	cb := Callback{
		CheckoutID: "c1",
		Event:      EventSuccess,
		Reference:  "pi_1",
		Date:       time.Now().UTC().Add(10 * time.Minute).Format(time.RFC3339),
		Nonce:      "n-1",
	}
	cb.Signature = security.ComputeWebhookSignature(
		"shhh", "stripe", cb.CheckoutID, cb.Event, cb.Reference, cb.Date, cb.Nonce,
	)

	assert.ErrorIs(t, provider.VerifyCallback(cb), ErrCallbackExpired)
}

func TestVerifyCallbackRejectsCrossProviderSignature(t *testing.T) {
	r := testProviders()
	razorpay, _ := r.ByName("razorpay")

	// Signed for stripe, delivered to razorpay.
	cb := Callback{
		CheckoutID: "c1",
		Event:      EventSuccess,
		Reference:  "pi_1",
		Date:       time.Now().UTC().Format(time.RFC3339),
		Nonce:      "n-1",
	}
	cb.Signature = security.ComputeWebhookSignature(
		"shhh", "stripe", cb.CheckoutID, cb.Event, cb.Reference, cb.Date, cb.Nonce,
	)

	assert.ErrorIs(t, razorpay.VerifyCallback(cb), ErrInvalidSignature)
}
