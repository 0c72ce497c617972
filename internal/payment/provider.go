package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/models"
	"tradorr/api/internal/security"
)

var (
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrCallbackExpired  = errors.New("webhook callback expired")
	ErrProviderFailure  = errors.New("payment provider failure")
)

// Callback events a provider may deliver for a checkout.
const (
	EventSuccess = "success"
	EventCancel  = "cancel"
	EventError   = "error"
)

// Handoff carries everything the frontend needs to mount the provider's
// payment widget for a checkout session.
type Handoff struct {
	Provider   string            `json:"provider"`
	CheckoutID string            `json:"checkoutId"`
	Reference  string            `json:"reference"`
	Params     map[string]string `json:"params"`
}

// Callback is the provider's signed notification about a checkout outcome.
type Callback struct {
	CheckoutID string `json:"checkoutId"`
	Event      string `json:"event"`
	Reference  string `json:"reference"`
	Reason     string `json:"reason"`
	Date       string `json:"date"`
	Nonce      string `json:"nonce"`
	Signature  string `json:"signature"`
}

// Provider abstracts one external payment collaborator. The flow never
// sees provider internals beyond the handoff and the callback surface.
type Provider interface {
	Name() string
	Method() models.PaymentMethod
	CreateCheckout(ctx context.Context, plan catalog.Plan, checkoutID string, trial bool) (Handoff, error)
	VerifyCallback(cb Callback) error
}

// verifyCallback is the shared signature and freshness check. The stale
// window mirrors the clock skew we tolerate on signed requests.
func verifyCallback(secret string, providerName string, cb Callback) error {
	sentAt, err := time.Parse(time.RFC3339, cb.Date)
	if err != nil {
		return fmt.Errorf("%w: bad date", ErrInvalidSignature)
	}
	if time.Since(sentAt) > 5*time.Minute || time.Until(sentAt) > 2*time.Minute {
		return ErrCallbackExpired
	}

	ok := security.ValidateWebhookSignature(
		secret,
		cb.Signature,
		providerName,
		cb.CheckoutID,
		cb.Event,
		cb.Reference,
		cb.Date,
		cb.Nonce,
	)
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

// Registry resolves providers by name (webhooks) and by payment method
// (checkout method selection).
type Registry struct {
	byName   map[string]Provider
	byMethod map[models.PaymentMethod]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		byName:   make(map[string]Provider, len(providers)),
		byMethod: make(map[models.PaymentMethod]Provider, len(providers)),
	}
	for _, p := range providers {
		r.byName[p.Name()] = p
		r.byMethod[p.Method()] = p
	}
	return r
}

func (r *Registry) ByName(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) ByMethod(method models.PaymentMethod) (Provider, bool) {
	p, ok := r.byMethod[method]
	return p, ok
}
