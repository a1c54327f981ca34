package accounting

import (
	"context"
	"errors"
	"sync"
	"time"

	"zonemeter/internal/logger"
)

// Scheduler triggers a task at a fixed interval. It replaces a cron-style
// timer with something that can be started and stopped explicitly; the task
// itself enforces serialization and duplicate suppression.
type Scheduler struct {
	interval time.Duration
	task     func(context.Context) error

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewScheduler(interval time.Duration, task func(context.Context) error) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		done:     make(chan struct{}),
	}
}

// Start begins ticking in a background goroutine. Task errors are logged,
// never fatal; a skipped step is only worth a debug line.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.run(ctx)
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch err := s.task(ctx); {
			case errors.Is(err, ErrStepSkipped):
				logger.Debug("scheduled step suppressed")
			case err != nil:
				logger.Error("scheduled step failed", "error", err)
			}
		}
	}
}

// Stop cancels the ticker loop and waits for it to drain.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}
