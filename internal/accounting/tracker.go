// Package accounting owns the per-meter zone accounting state machine and
// the serialized step runner that advances it.
package accounting

import (
	"zonemeter/internal/models"
	"zonemeter/internal/sanitize"
)

// Observation is one meter's input to an accounting step: its sanitized
// cumulative counter value and the zone the registry currently reports for it.
type Observation struct {
	MeterID string
	Zone    models.Zone
	Value   float64
}

// Tracker applies zone reassignment accounting over the closed zone set.
// It is a pure transition function over snapshot state; all persistence and
// locking lives in the Runner.
type Tracker struct {
	zones []models.Zone
}

func NewTracker(zones []models.Zone) *Tracker {
	return &Tracker{zones: zones}
}

// Apply advances the prior snapshot state by one batch of observations and
// returns the next state. Meters absent from the batch are carried forward
// untouched; meters are independent of each other. The prior map is never
// mutated.
func (t *Tracker) Apply(prior map[string]models.MeterState, batch []Observation) map[string]models.MeterState {
	next := make(map[string]models.MeterState, len(prior)+len(batch))
	for id, st := range prior {
		next[id] = st.Clone()
	}
	for _, obs := range batch {
		next[obs.MeterID] = t.transition(next[obs.MeterID], obs)
	}
	return next
}

func (t *Tracker) transition(st models.MeterState, obs Observation) models.MeterState {
	value := sanitize.Counter(obs.Value)

	// First observation: open accumulators for every zone, anchor the
	// reported zone's window at the current counter value.
	if st.Zones == nil {
		st = models.MeterState{Zones: make(map[models.Zone]models.ZoneAccumulator, len(t.zones))}
		for _, z := range t.zones {
			st.Zones[z] = models.ZoneAccumulator{}
		}
		st.Zones[obs.Zone] = models.ZoneAccumulator{FirstValue: value, LastValue: value}
		st.CurrentZone = obs.Zone
		return st
	}

	if obs.Zone == st.CurrentZone {
		// Continuation: extend the active window, zero every inactive
		// zone's consumption. Inactive first/last values stay as they
		// were; only the reported figure is cleared.
		acc := st.Zones[obs.Zone]
		acc.LastValue = value
		acc.Consumption = sanitize.ClampDelta(value - acc.FirstValue)
		st.Zones[obs.Zone] = acc
		for _, z := range t.zones {
			if z == obs.Zone {
				continue
			}
			other := st.Zones[z]
			other.Consumption = 0
			st.Zones[z] = other
		}
		return st
	}

	// Reassignment: the new zone's window starts at the value last recorded
	// for the zone being vacated, not at the raw reading, so the counter
	// hands off without a spurious jump. The vacated zone's accumulator is
	// left as-is for this step; the next continuation zeroes its
	// consumption. A meter toggling back to a zone within one reporting
	// window therefore loses that zone's earlier accrual — known
	// limitation, kept deliberately.
	handoff := st.Zones[st.CurrentZone].LastValue
	acc := st.Zones[obs.Zone]
	acc.FirstValue = handoff
	acc.LastValue = value
	acc.Consumption = sanitize.ClampDelta(value - handoff)
	st.Zones[obs.Zone] = acc
	st.CurrentZone = obs.Zone
	return st
}
