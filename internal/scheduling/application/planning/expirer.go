package planning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultExpireInterval is how often the expirer sweeps stale drafts.
const DefaultExpireInterval = time.Minute

// Expirer periodically transitions stale draft sessions to expired.
type Expirer struct {
	service   *Service
	scheduler gocron.Scheduler
	interval  time.Duration
	logger    *slog.Logger
}

// NewExpirer creates a stopped expirer sweeping at the given interval
// (DefaultExpireInterval when zero).
func NewExpirer(service *Service, interval time.Duration, logger *slog.Logger) (*Expirer, error) {
	if interval <= 0 {
		interval = DefaultExpireInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create expiry scheduler: %w", err)
	}
	return &Expirer{
		service:   service,
		scheduler: scheduler,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start registers the sweep job and begins running it.
func (e *Expirer) Start(ctx context.Context) error {
	_, err := e.scheduler.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(func() {
			if err := e.service.ExpireSessions(ctx); err != nil {
				e.logger.Error("session expiry sweep failed", "error", err)
			}
		}),
		gocron.WithName("session-expirer"),
	)
	if err != nil {
		return fmt.Errorf("register expiry job: %w", err)
	}

	e.scheduler.Start()
	e.logger.Info("session expirer started", "interval", e.interval)
	return nil
}

// Stop shuts the scheduler down and waits for a running sweep to finish.
func (e *Expirer) Stop() error {
	return e.scheduler.Shutdown()
}
