package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tradorr/api/internal/entitlement"
)

// Scheduler runs the entitlement expiry sweep so lapsed subscriptions
// deactivate without waiting for the user's next request.
type Scheduler struct {
	cron         *cron.Cron
	entitlements *entitlement.Service
	log          zerolog.Logger
}

func NewScheduler(entitlements *entitlement.Service, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:         c,
		entitlements: entitlements,
		log:          log,
	}
}

func (s *Scheduler) Start() error {
	if s.entitlements == nil {
		return nil
	}

	// Hourly sweep; expiry timestamps are fuzzy enough that finer
	// granularity buys nothing.
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.sweepExpired); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.entitlements.ExpireSweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("entitlement expiry sweep failed")
		return
	}
	if expired > 0 {
		s.log.Info().Int("expired", expired).Msg("entitlements deactivated")
	}
}
