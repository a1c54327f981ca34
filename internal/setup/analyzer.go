package setup

import (
	"context"
	"fmt"
	"sort"

	"zonemeter/internal/api"
	"zonemeter/internal/models"
	"zonemeter/internal/store"
)

// MeterInfo describes one meter discovered on the gateway.
type MeterInfo struct {
	MeterID  string
	Suffixes []string
	Zone     models.Zone // empty when the registry has no record
}

type Analyzer struct {
	client *api.Client
	store  *store.Store
}

func NewAnalyzer(client *api.Client, st *store.Store) *Analyzer {
	return &Analyzer{client: client, store: st}
}

// AnalyzeSetup polls the gateway once and reports every meter it publishes,
// matched against the assignment registry. Meters with no assignment are the
// ones an operator still has to place in a zone.
func (sa *Analyzer) AnalyzeSetup(ctx context.Context) ([]MeterInfo, error) {
	raw, err := sa.client.FetchRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to poll gateway: %v", err)
	}

	assignments, err := sa.store.CurrentAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %v", err)
	}

	suffixes := make(map[string][]string)
	for key := range raw {
		suffixes[key.MeterID] = append(suffixes[key.MeterID], key.Suffix)
	}

	var meters []MeterInfo
	for meterID, sfx := range suffixes {
		sort.Strings(sfx)
		meters = append(meters, MeterInfo{
			MeterID:  meterID,
			Suffixes: sfx,
			Zone:     assignments[meterID],
		})
	}
	sort.Slice(meters, func(i, j int) bool { return meters[i].MeterID < meters[j].MeterID })

	return meters, nil
}
