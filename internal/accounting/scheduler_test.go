package accounting

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_TicksAndStops(t *testing.T) {
	var ticks atomic.Int64
	s := NewScheduler(10*time.Millisecond, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	})

	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	seen := ticks.Load()
	assert.Greater(t, seen, int64(0), "scheduler never ticked")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seen, ticks.Load(), "scheduler kept ticking after Stop")
}

func TestScheduler_TaskErrorsAreNotFatal(t *testing.T) {
	var ticks atomic.Int64
	s := NewScheduler(10*time.Millisecond, func(ctx context.Context) error {
		ticks.Add(1)
		return ErrStepSkipped
	})

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Greater(t, ticks.Load(), int64(1), "an erroring task must keep being scheduled")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, func(ctx context.Context) error { return nil })
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
