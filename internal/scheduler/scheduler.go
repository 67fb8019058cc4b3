package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wellbeing-backend/internal/service"
)

// Scheduler owns the background sweeps: a short-interval availability poll
// and a longer-interval escalation poll. One ticker per concern; both stop
// when the context is cancelled.
type Scheduler struct {
	checkInService       service.CheckInService
	supportService       service.SupportService
	availabilityInterval time.Duration
	escalationInterval   time.Duration
	logger               *zap.Logger
}

func NewScheduler(
	checkInService service.CheckInService,
	supportService service.SupportService,
	availabilityInterval time.Duration,
	escalationInterval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		checkInService:       checkInService,
		supportService:       supportService,
		availabilityInterval: availabilityInterval,
		escalationInterval:   escalationInterval,
		logger:               logger,
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started",
		zap.Duration("availability_interval", s.availabilityInterval),
		zap.Duration("escalation_interval", s.escalationInterval))

	availabilityTicker := time.NewTicker(s.availabilityInterval)
	defer availabilityTicker.Stop()

	escalationTicker := time.NewTicker(s.escalationInterval)
	defer escalationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped.")
			return
		case <-availabilityTicker.C:
			s.checkInService.SweepAvailability(ctx)
		case <-escalationTicker.C:
			s.supportService.SweepEscalations(ctx)
		}
	}
}
