// Package service is the query surface the rest of the system talks to:
// window consumption by zone, reassignment, assignment lookups and the
// per-meter accounting history.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zonemeter/internal/accounting"
	"zonemeter/internal/analyzer"
	"zonemeter/internal/api"
	"zonemeter/internal/config"
	"zonemeter/internal/logger"
	"zonemeter/internal/models"
	"zonemeter/internal/store"
)

// ErrUnknownZone rejects a zone outside the configured closed set before it
// can reach the tracker or the registry.
var ErrUnknownZone = errors.New("unknown zone")

type Service struct {
	cfg    *config.Config
	store  *store.Store
	runner *accounting.Runner
}

func New(cfg *config.Config, st *store.Store, runner *accounting.Runner) *Service {
	return &Service{cfg: cfg, store: st, runner: runner}
}

// ConsumptionByZone reports, per zone, the counter consumption of the given
// meters over [from, to], computed on the reporting grid from the archived
// readings. Each meter's figure is attributed to its current assignment.
// Every configured zone appears in the result; a window with no data yields
// zeroes, not an error.
func (s *Service) ConsumptionByZone(ctx context.Context, meterIDs []string, from, to time.Time) (map[models.Zone]float64, error) {
	assignments, err := s.store.CurrentAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	totals := make(map[models.Zone]float64, len(s.cfg.Zones))
	for _, z := range s.cfg.Zones {
		totals[z] = 0
	}

	step := s.cfg.Reporting.GridStep()
	for _, meterID := range meterIDs {
		readings, err := s.store.ReadingsInWindow(ctx, meterID, from, to)
		if err != nil {
			return nil, fmt.Errorf("loading readings for %s: %w", meterID, err)
		}

		samples := make([]analyzer.Sample, 0, len(readings))
		for _, r := range readings {
			samples = append(samples, analyzer.Sample{
				Timestamp: r.TakenAt,
				Fields:    map[string]float64{api.CounterSuffix: r.Value},
			})
		}

		slots := analyzer.Align(samples, from, to, step, []string{api.CounterSuffix})
		consumption := analyzer.ConsumptionOverWindow(slots, api.CounterSuffix)

		zone, ok := assignments[meterID]
		if !ok {
			zone = s.cfg.DefaultZone()
		}
		totals[zone] += consumption
	}
	return totals, nil
}

// MeterAverage reports the average archived counter value of one meter over
// the window, with the total slot count as a completeness diagnostic.
func (s *Service) MeterAverage(ctx context.Context, meterID string, from, to time.Time) (analyzer.WindowAverage, error) {
	readings, err := s.store.ReadingsInWindow(ctx, meterID, from, to)
	if err != nil {
		return analyzer.WindowAverage{}, fmt.Errorf("loading readings for %s: %w", meterID, err)
	}

	samples := make([]analyzer.Sample, 0, len(readings))
	for _, r := range readings {
		samples = append(samples, analyzer.Sample{
			Timestamp: r.TakenAt,
			Fields:    map[string]float64{api.CounterSuffix: r.Value},
		})
	}
	slots := analyzer.Align(samples, from, to, s.cfg.Reporting.GridStep(), []string{api.CounterSuffix})
	return analyzer.AverageOverWindow(slots, api.CounterSuffix), nil
}

// Reassign moves a meter to another zone: the zone is validated against the
// closed set, the audit record written, and an on-demand accounting step
// triggered so the handoff lands in the snapshot log immediately. A failed
// step does not undo the reassignment; the next scheduled step picks it up.
func (s *Service) Reassign(ctx context.Context, meterID string, zone models.Zone, requestedBy string) (*models.ZoneAssignment, error) {
	if !s.cfg.KnownZone(zone) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	if meterID == "" {
		return nil, fmt.Errorf("meter id is required")
	}

	assignment, err := s.store.Reassign(ctx, meterID, zone, requestedBy, time.Now())
	if err != nil {
		return nil, fmt.Errorf("recording reassignment: %w", err)
	}

	if _, err := s.runner.RunStep(ctx, models.SourceManual); err != nil {
		logger.Warn("on-demand accounting step failed after reassignment",
			"meter", meterID, "zone", string(zone), "error", err)
	}
	return assignment, nil
}

// LatestAssignments returns the current meter -> zone mapping.
func (s *Service) LatestAssignments(ctx context.Context) (map[string]models.Zone, error) {
	return s.store.CurrentAssignments(ctx)
}

// History returns the append-only snapshot log filtered down to one meter.
func (s *Service) History(ctx context.Context, meterID string) ([]models.AccountingSnapshot, error) {
	return s.store.SnapshotsForMeter(ctx, meterID)
}

// ZoneTotals returns the point-in-time per-zone consumption of the most
// recent snapshot. An empty log yields all zones at zero.
func (s *Service) ZoneTotals(ctx context.Context) (map[models.Zone]float64, error) {
	snap, err := s.store.LatestSnapshot(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		totals := make(map[models.Zone]float64, len(s.cfg.Zones))
		for _, z := range s.cfg.Zones {
			totals[z] = 0
		}
		return totals, nil
	}
	if err != nil {
		return nil, err
	}

	totals := snap.ZoneTotals()
	for _, z := range s.cfg.Zones {
		if _, ok := totals[z]; !ok {
			totals[z] = 0
		}
	}
	return totals, nil
}
