package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tradorr/api/internal/catalog"
	"tradorr/api/internal/config"
	"tradorr/api/internal/events"
	"tradorr/api/internal/models"
	"tradorr/api/internal/repository"
)

var (
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrNegativeCost        = errors.New("cost must be non-negative")
)

// Store is the persistence surface the service needs; satisfied by
// repository.EntitlementRepository.
type Store interface {
	Get(ctx context.Context, userID string) (models.Entitlement, error)
	InitStarter(ctx context.Context, userID string, tokens int64) error
	Grant(ctx context.Context, userID string, planID string, tokens int64, expiresAt time.Time) (models.Entitlement, error)
	Consume(ctx context.Context, userID string, cost int64) (models.Entitlement, bool, error)
	AdjustTokens(ctx context.Context, userID string, delta int64) (models.Entitlement, error)
	Clear(ctx context.Context, userID string) error
	ExpireStale(ctx context.Context, now time.Time) ([]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service owns subscription and token state, keyed by user id.
type Service struct {
	store Store
	bus   Publisher
	cfg   config.BillingConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(store Store, bus Publisher, cfg config.BillingConfig, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// Snapshot returns the user's current entitlement. A user without a row
// gets the zero state rather than an error.
func (s *Service) Snapshot(ctx context.Context, userID string) (models.Entitlement, error) {
	ent, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrEntitlementNotFound) {
			return models.Entitlement{UserID: userID}, nil
		}
		return models.Entitlement{}, err
	}
	return ent, nil
}

// InitStarter seeds a fresh account with the registration token grant.
func (s *Service) InitStarter(ctx context.Context, userID string) error {
	return s.store.InitStarter(ctx, userID, s.cfg.StarterTokens)
}

// Grant activates the plan for one billing period and adds its full token
// total. Callers must invoke this exactly once per successful payment; the
// checkout flow's one-shot completion transition is that guard.
func (s *Service) Grant(ctx context.Context, userID string, plan catalog.Plan, trial bool) (models.Entitlement, error) {
	expiresAt := s.now().AddDate(0, s.cfg.PeriodMonths, 0)
	if trial {
		expiresAt = expiresAt.AddDate(0, 0, s.cfg.TrialDays)
	}

	ent, err := s.store.Grant(ctx, userID, plan.ID, plan.TotalTokens(), expiresAt)
	if err != nil {
		return models.Entitlement{}, err
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeEntitlementUpdated,
		UserID: userID,
		Data: map[string]any{
			"planId":       plan.ID,
			"tokenBalance": ent.TokenBalance,
		},
	})
	return ent, nil
}

// Consume charges tokens for one action. The balance is never driven
// below zero: on a shortfall it is left unchanged and
// ErrInsufficientBalance is returned.
func (s *Service) Consume(ctx context.Context, userID string, cost int64) (models.Entitlement, error) {
	if cost < 0 {
		return models.Entitlement{}, ErrNegativeCost
	}
	if cost == 0 {
		return s.Snapshot(ctx, userID)
	}

	ent, ok, err := s.store.Consume(ctx, userID, cost)
	if err != nil {
		return models.Entitlement{}, err
	}
	if !ok {
		return models.Entitlement{}, ErrInsufficientBalance
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeEntitlementUpdated,
		UserID: userID,
		Data: map[string]any{
			"tokenBalance": ent.TokenBalance,
		},
	})
	return ent, nil
}

// AdjustTokens applies a manual admin delta, clamped at zero.
func (s *Service) AdjustTokens(ctx context.Context, userID string, delta int64) (models.Entitlement, error) {
	ent, err := s.store.AdjustTokens(ctx, userID, delta)
	if err != nil {
		return models.Entitlement{}, err
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeEntitlementUpdated,
		UserID: userID,
		Data: map[string]any{
			"tokenBalance": ent.TokenBalance,
		},
	})
	return ent, nil
}

// Clear resets the user's entitlement to defaults.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeEntitlementUpdated,
		UserID: userID,
		Data: map[string]any{
			"tokenBalance": int64(0),
		},
	})
	return nil
}

// ExpireSweep deactivates lapsed entitlements and notifies their owners.
// Run periodically by the scheduler.
func (s *Service) ExpireSweep(ctx context.Context) (int, error) {
	userIDs, err := s.store.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for _, userID := range userIDs {
		s.bus.Publish(ctx, events.Event{
			Type:   events.TypeEntitlementUpdated,
			UserID: userID,
			Data: map[string]any{
				"active": false,
			},
		})
	}
	return len(userIDs), nil
}
