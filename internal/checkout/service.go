package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/events"
	"tradorr/api/internal/ids"
	"tradorr/api/internal/models"
	"tradorr/api/internal/payment"
	"tradorr/api/internal/repository"
	"tradorr/api/internal/storage"
)

var (
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrInvalidMethod = errors.New("invalid payment method")
	ErrNotFound      = errors.New("checkout session not found")
	ErrTerminal      = errors.New("checkout already finished")
)

// Store is satisfied by repository.CheckoutRepository.
type Store interface {
	Create(ctx context.Context, s models.CheckoutSession) error
	GetByID(ctx context.Context, id string) (models.CheckoutSession, error)
	SetMethod(ctx context.Context, id string, method models.PaymentMethod, trial bool, providerName string, providerRef string) (models.CheckoutSession, error)
	Complete(ctx context.Context, id string) (models.CheckoutSession, bool, error)
	Cancel(ctx context.Context, id string) (models.CheckoutSession, bool, error)
	RecordFailure(ctx context.Context, id string, reason string) error
}

// Entitlements is the slice of the entitlement service the flow calls on
// payment success.
type Entitlements interface {
	Grant(ctx context.Context, userID string, plan catalog.Plan, trial bool) (models.Entitlement, error)
}

// Receipts archives completed checkouts. Archival is best-effort.
type Receipts interface {
	Archive(ctx context.Context, receipt storage.Receipt) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service orchestrates plan selection, method selection, the provider
// widget handoff and entitlement activation.
type Service struct {
	store        Store
	entitlements Entitlements
	providers    *payment.Registry
	receipts     Receipts
	bus          Publisher
	log          zerolog.Logger
}

func NewService(store Store, entitlements Entitlements, providers *payment.Registry, receipts Receipts, bus Publisher, log zerolog.Logger) *Service {
	return &Service{
		store:        store,
		entitlements: entitlements,
		providers:    providers,
		receipts:     receipts,
		bus:          bus,
		log:          log,
	}
}

// Start opens a checkout session for a signed-in user. Signed-out users
// never reach this: the route guard redirects them to /login first.
func (s *Service) Start(ctx context.Context, userID string, planID string) (models.CheckoutSession, error) {
	plan, ok := catalog.ByID(planID)
	if !ok {
		return models.CheckoutSession{}, ErrUnknownPlan
	}

	session := models.CheckoutSession{
		ID:          ids.New(),
		UserID:      userID,
		PlanID:      plan.ID,
		AmountMinor: plan.PriceMinor,
		Currency:    plan.Currency,
		Status:      models.CheckoutStatusPlanSelected,
	}

	if err := s.store.Create(ctx, session); err != nil {
		return models.CheckoutSession{}, err
	}

	s.log.Info().
		Str("checkout_id", session.ID).
		Str("user_id", userID).
		Str("plan_id", plan.ID).
		Msg("checkout started")
	return session, nil
}

// SelectMethod picks the payment method and prepares the provider widget
// handoff. Re-selecting while already on method_selected is allowed so a
// failed payment can be retried with a different method.
func (s *Service) SelectMethod(ctx context.Context, userID string, checkoutID string, method models.PaymentMethod, trial bool) (models.CheckoutSession, payment.Handoff, error) {
	if !models.IsValidPaymentMethod(method) {
		return models.CheckoutSession{}, payment.Handoff{}, ErrInvalidMethod
	}
	provider, ok := s.providers.ByMethod(method)
	if !ok {
		return models.CheckoutSession{}, payment.Handoff{}, ErrInvalidMethod
	}

	session, err := s.getOwned(ctx, userID, checkoutID)
	if err != nil {
		return models.CheckoutSession{}, payment.Handoff{}, err
	}
	if session.Terminal() {
		return models.CheckoutSession{}, payment.Handoff{}, ErrTerminal
	}

	plan, ok := catalog.ByID(session.PlanID)
	if !ok {
		return models.CheckoutSession{}, payment.Handoff{}, ErrUnknownPlan
	}

	handoff, err := provider.CreateCheckout(ctx, plan, session.ID, trial)
	if err != nil {
		return models.CheckoutSession{}, payment.Handoff{}, fmt.Errorf("%w: %v", payment.ErrProviderFailure, err)
	}

	session, err = s.store.SetMethod(ctx, session.ID, method, trial, provider.Name(), handoff.Reference)
	if err != nil {
		if errors.Is(err, repository.ErrCheckoutNotFound) {
			return models.CheckoutSession{}, payment.Handoff{}, ErrTerminal
		}
		return models.CheckoutSession{}, payment.Handoff{}, err
	}

	return session, handoff, nil
}

// HandleCallback processes a provider's signed success/cancel/error
// notification. Success grants the plan exactly once: the conditional
// completion transition swallows duplicate callbacks.
func (s *Service) HandleCallback(ctx context.Context, providerName string, cb payment.Callback) error {
	provider, ok := s.providers.ByName(providerName)
	if !ok {
		return payment.ErrUnknownProvider
	}
	if err := provider.VerifyCallback(cb); err != nil {
		return err
	}

	session, err := s.store.GetByID(ctx, cb.CheckoutID)
	if err != nil {
		if errors.Is(err, repository.ErrCheckoutNotFound) {
			return ErrNotFound
		}
		return err
	}

	switch cb.Event {
	case payment.EventSuccess:
		return s.complete(ctx, session, cb)
	case payment.EventCancel:
		return s.cancel(ctx, session)
	case payment.EventError:
		return s.fail(ctx, session, cb.Reason)
	default:
		return fmt.Errorf("%w: event %q", payment.ErrInvalidSignature, cb.Event)
	}
}

func (s *Service) complete(ctx context.Context, session models.CheckoutSession, cb payment.Callback) error {
	completed, ok, err := s.store.Complete(ctx, session.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Duplicate or late callback; the first one already granted.
		s.log.Warn().
			Str("checkout_id", session.ID).
			Str("status", string(session.Status)).
			Msg("ignoring repeated success callback")
		return nil
	}

	plan, planOK := catalog.ByID(completed.PlanID)
	if !planOK {
		return ErrUnknownPlan
	}

	ent, err := s.entitlements.Grant(ctx, completed.UserID, plan, completed.Trial)
	if err != nil {
		return fmt.Errorf("grant entitlement: %w", err)
	}

	if s.receipts != nil {
		receipt := storage.Receipt{
			CheckoutID:  completed.ID,
			UserID:      completed.UserID,
			PlanID:      plan.ID,
			PlanName:    plan.Name,
			AmountMinor: completed.AmountMinor,
			Currency:    completed.Currency,
			Method:      string(completed.Method),
			Provider:    completed.ProviderName,
			Reference:   cb.Reference,
			Trial:       completed.Trial,
			TokensAdded: plan.TotalTokens(),
			IssuedAt:    time.Now().UTC(),
		}
		if err := s.receipts.Archive(ctx, receipt); err != nil {
			s.log.Warn().Err(err).Str("checkout_id", completed.ID).Msg("archive receipt failed")
		}
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeCheckoutCompleted,
		UserID: completed.UserID,
		Data: map[string]any{
			"checkoutId":   completed.ID,
			"planId":       plan.ID,
			"tokenBalance": ent.TokenBalance,
			"redirect":     "/dashboard",
		},
	})

	s.log.Info().
		Str("checkout_id", completed.ID).
		Str("user_id", completed.UserID).
		Str("plan_id", plan.ID).
		Int64("tokens", plan.TotalTokens()).
		Msg("checkout completed")
	return nil
}

func (s *Service) cancel(ctx context.Context, session models.CheckoutSession) error {
	cancelled, ok, err := s.store.Cancel(ctx, session.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeCheckoutCancelled,
		UserID: cancelled.UserID,
		Data: map[string]any{
			"checkoutId": cancelled.ID,
		},
	})
	return nil
}

// fail keeps the session on method_selected so the user may retry without
// re-selecting a plan. The entitlement is untouched.
func (s *Service) fail(ctx context.Context, session models.CheckoutSession, reason string) error {
	if reason == "" {
		reason = "payment failed"
	}
	if err := s.store.RecordFailure(ctx, session.ID, reason); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeCheckoutFailed,
		UserID: session.UserID,
		Data: map[string]any{
			"checkoutId": session.ID,
			"reason":     reason,
		},
	})
	return nil
}

// CancelByUser handles explicit back-navigation or modal dismissal.
func (s *Service) CancelByUser(ctx context.Context, userID string, checkoutID string) (models.CheckoutSession, error) {
	session, err := s.getOwned(ctx, userID, checkoutID)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if session.Terminal() {
		return models.CheckoutSession{}, ErrTerminal
	}
	return session, s.cancel(ctx, session)
}

// Get returns a checkout session scoped to its owner.
func (s *Service) Get(ctx context.Context, userID string, checkoutID string) (models.CheckoutSession, error) {
	return s.getOwned(ctx, userID, checkoutID)
}

func (s *Service) getOwned(ctx context.Context, userID string, checkoutID string) (models.CheckoutSession, error) {
	session, err := s.store.GetByID(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, repository.ErrCheckoutNotFound) {
			return models.CheckoutSession{}, ErrNotFound
		}
		return models.CheckoutSession{}, err
	}
	// Hide other users' sessions rather than admitting they exist.
	if session.UserID != userID {
		return models.CheckoutSession{}, ErrNotFound
	}
	return session, nil
}
