package service

import (
	"context"
	"time"

	"smart_climate/internal/logger"
)

// DefaultSchedulerTick is the periodic re-evaluation interval.
const DefaultSchedulerTick = 60 * time.Second

// SchedulerService re-evaluates every registered controller on a fixed interval,
// so outdoor changes and elapsed minimum runtimes are picked up without user input.
type SchedulerService struct {
	reg     *Registry
	climate *ClimateService
	log     *logger.Logger
}

func NewSchedulerService(reg *Registry, climate *ClimateService, log *logger.Logger) *SchedulerService {
	if log == nil {
		log = logger.Nop()
	}
	return &SchedulerService{reg: reg, climate: climate, log: log.Named("scheduler")}
}

// Run evaluates once immediately, then every tick until ctx is canceled.
// A failing controller is logged and retried on the next tick.
func (s *SchedulerService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	s.log.Infow("scheduler_started", "tick", tick.String(), "controllers", s.reg.Len())

	s.runOnce(ctx)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("scheduler_stopped")
			return
		case <-t.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	for _, c := range s.reg.All() {
		if ctx.Err() != nil {
			return
		}
		// errors are already logged and recorded as events by the climate service
		_, _ = s.climate.apply(ctx, c)
	}
}
