package payment

import (
	"context"
	"strconv"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/config"
	"tradorr/api/internal/ids"
	"tradorr/api/internal/models"
)

// RazorpayProvider backs the UPI method for Indian customers.
type RazorpayProvider struct {
	cfg config.ProviderConfig
}

func NewRazorpayProvider(cfg config.ProviderConfig) *RazorpayProvider {
	return &RazorpayProvider{cfg: cfg}
}

func (p *RazorpayProvider) Name() string {
	return "razorpay"
}

func (p *RazorpayProvider) Method() models.PaymentMethod {
	return models.PaymentMethodUPI
}

func (p *RazorpayProvider) CreateCheckout(_ context.Context, plan catalog.Plan, checkoutID string, trial bool) (Handoff, error) {
	reference := "order_" + ids.New()

	return Handoff{
		Provider:   p.Name(),
		CheckoutID: checkoutID,
		Reference:  reference,
		Params: map[string]string{
			"keyId":    p.cfg.PublicKey,
			"amount":   strconv.FormatInt(plan.PriceMinor, 10),
			"currency": plan.Currency,
			"name":     plan.Name,
			"trial":    strconv.FormatBool(trial),
		},
	}, nil
}

func (p *RazorpayProvider) VerifyCallback(cb Callback) error {
	return verifyCallback(p.cfg.WebhookSecret, p.Name(), cb)
}
