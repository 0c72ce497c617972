package payment

import (
	"context"
	"strconv"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/config"
	"tradorr/api/internal/ids"
	"tradorr/api/internal/models"
)

// CryptoProvider backs the crypto method (Coinbase/NOWPayments style
// hosted charge page). Trials do not apply to on-chain payments, so the
// flag only rides along for reporting.
type CryptoProvider struct {
	cfg config.ProviderConfig
}

func NewCryptoProvider(cfg config.ProviderConfig) *CryptoProvider {
	return &CryptoProvider{cfg: cfg}
}

func (p *CryptoProvider) Name() string {
	return "crypto"
}

func (p *CryptoProvider) Method() models.PaymentMethod {
	return models.PaymentMethodCrypto
}

func (p *CryptoProvider) CreateCheckout(_ context.Context, plan catalog.Plan, checkoutID string, trial bool) (Handoff, error) {
	reference := "charge_" + ids.New()

	return Handoff{
		Provider:   p.Name(),
		CheckoutID: checkoutID,
		Reference:  reference,
		Params: map[string]string{
			"apiKey":      p.cfg.PublicKey,
			"priceMinor":  strconv.FormatInt(plan.PriceMinor, 10),
			"currency":    plan.Currency,
			"description": plan.Name,
			"trial":       strconv.FormatBool(trial),
		},
	}, nil
}

func (p *CryptoProvider) VerifyCallback(cb Callback) error {
	return verifyCallback(p.cfg.WebhookSecret, p.Name(), cb)
}
