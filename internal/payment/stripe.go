package payment

import (
	"context"
	"strconv"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/config"
	"tradorr/api/internal/ids"
	"tradorr/api/internal/models"
)

// StripeProvider backs the card method. CreateCheckout prepares the values
// the Stripe Elements widget mounts with; the charge itself happens inside
// the widget and is reported back over the signed webhook.
type StripeProvider struct {
	cfg config.ProviderConfig
}

func NewStripeProvider(cfg config.ProviderConfig) *StripeProvider {
	return &StripeProvider{cfg: cfg}
}

func (p *StripeProvider) Name() string {
	return "stripe"
}

func (p *StripeProvider) Method() models.PaymentMethod {
	return models.PaymentMethodCard
}

func (p *StripeProvider) CreateCheckout(_ context.Context, plan catalog.Plan, checkoutID string, trial bool) (Handoff, error) {
	reference := "pi_" + ids.New()

	return Handoff{
		Provider:   p.Name(),
		CheckoutID: checkoutID,
		Reference:  reference,
		Params: map[string]string{
			"publishableKey": p.cfg.PublicKey,
			"amount":         strconv.FormatInt(plan.PriceMinor, 10),
			"currency":       plan.Currency,
			"planName":       plan.Name,
			"trial":          strconv.FormatBool(trial),
		},
	}, nil
}

func (p *StripeProvider) VerifyCallback(cb Callback) error {
	return verifyCallback(p.cfg.WebhookSecret, p.Name(), cb)
}
