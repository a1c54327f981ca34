package accounting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"zonemeter/internal/logger"
	"zonemeter/internal/models"
	"zonemeter/internal/store"
)

// ErrStepSkipped marks an accounting step that deliberately wrote nothing:
// a scheduled step that found a manual snapshot from the same minute.
var ErrStepSkipped = errors.New("accounting step skipped")

// ReadingSource supplies the current counter value of every known meter.
type ReadingSource interface {
	FetchCounters(ctx context.Context) ([]models.MeterReading, error)
}

// Runner executes one accounting step: read the prior snapshot, poll the
// gateway, advance the tracker, append the next snapshot. The whole
// read-compute-append sequence runs under a single mutex; two trigger
// sources (timer and manual reassignment) share one Runner.
type Runner struct {
	mu          sync.Mutex
	store       *store.Store
	source      ReadingSource
	tracker     *Tracker
	defaultZone models.Zone
	now         func() time.Time
}

func NewRunner(st *store.Store, source ReadingSource, tracker *Tracker, defaultZone models.Zone) *Runner {
	return &Runner{
		store:       st,
		source:      source,
		tracker:     tracker,
		defaultZone: defaultZone,
		now:         time.Now,
	}
}

// RunStep performs one serialized accounting pass and returns the snapshot
// it appended. On duplicate suppression it returns the prior snapshot and
// ErrStepSkipped. An upstream poll failure skips the step entirely; the
// snapshot chain is left untouched.
func (r *Runner) RunStep(ctx context.Context, trigger models.SnapshotSource) (*models.AccountingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Acquire readings and assignments before touching any state, so a
	// failed poll aborts with nothing half-done.
	var (
		readings    []models.MeterReading
		assignments map[string]models.Zone
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		readings, err = r.source.FetchCounters(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = r.store.CurrentAssignments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("acquiring step inputs: %w", err)
	}

	prior, err := r.store.LatestSnapshot(ctx)
	if err != nil && !errors.Is(err, store.ErrNoSnapshot) {
		return nil, fmt.Errorf("loading prior snapshot: %w", err)
	}

	now := r.now()

	// A manual step already accounted this minute; the overlapping
	// scheduled step is a no-op.
	if trigger == models.SourceScheduled && prior != nil &&
		prior.Source == models.SourceManual &&
		prior.CreatedAt.UTC().Truncate(time.Minute).Equal(now.UTC().Truncate(time.Minute)) {
		return prior, ErrStepSkipped
	}

	priorMeters := map[string]models.MeterState{}
	if prior != nil {
		priorMeters = prior.Meters
	}

	batch := make([]Observation, 0, len(readings))
	for _, reading := range readings {
		zone, ok := assignments[reading.MeterID]
		if !ok {
			zone = r.defaultZone
		}
		batch = append(batch, Observation{
			MeterID: reading.MeterID,
			Zone:    zone,
			Value:   reading.Value,
		})
	}

	snap := &models.AccountingSnapshot{
		Source:    trigger,
		CreatedAt: now,
		Meters:    r.tracker.Apply(priorMeters, batch),
	}
	if err := r.store.AppendSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persisting snapshot: %w", err)
	}

	// Archive the raw poll for the reporting path. Losing the archive does
	// not invalidate the snapshot that was just written.
	if err := r.store.InsertReadings(ctx, readings); err != nil {
		logger.Warn("failed to archive readings", "error", err)
	}

	logger.Debug("accounting step complete",
		"trigger", string(trigger), "meters", len(readings), "snapshot", snap.ID)
	return snap, nil
}
