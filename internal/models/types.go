package models

import (
	"fmt"
	"strings"
	"time"
)

// Zone is a logical consumption area a physical meter can be assigned to.
// The set of valid zones is closed and comes from the configuration.
type Zone string

// ReadingKey identifies one value in a gateway poll response. The gateway
// publishes flat keys of the form "<meterId>_<suffix>"; keeping the two parts
// in a struct avoids ad-hoc string splitting at every call site.
type ReadingKey struct {
	MeterID string
	Suffix  string
}

// ParseReadingKey splits a raw gateway key at its last underscore.
func ParseReadingKey(raw string) (ReadingKey, error) {
	idx := strings.LastIndex(raw, "_")
	if idx <= 0 || idx == len(raw)-1 {
		return ReadingKey{}, fmt.Errorf("malformed reading key %q", raw)
	}
	return ReadingKey{MeterID: raw[:idx], Suffix: raw[idx+1:]}, nil
}

func (k ReadingKey) String() string {
	return k.MeterID + "_" + k.Suffix
}

// MeterReading is one cumulative counter sample from a physical meter.
type MeterReading struct {
	MeterID string    `json:"meterId"`
	TakenAt time.Time `json:"takenAt"`
	Value   float64   `json:"value"`
}

// ZoneAssignment records which zone a meter belongs to and since when.
// Assignment history is append-only; superseding an assignment closes the
// previous record's EffectiveTo instead of rewriting it.
type ZoneAssignment struct {
	ID            string     `json:"id"`
	MeterID       string     `json:"meterId"`
	Zone          Zone       `json:"zone"`
	RequestedBy   string     `json:"requestedBy"`
	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
}

// ZoneAccumulator carries the counter window for one meter in one zone.
// Consumption is always LastValue-FirstValue clamped to zero.
type ZoneAccumulator struct {
	FirstValue  float64 `json:"firstValue"`
	LastValue   float64 `json:"lastValue"`
	Consumption float64 `json:"consumption"`
}

// MeterState is the per-meter tuple tracked across accounting steps: one
// accumulator per zone plus the zone currently owning the meter.
type MeterState struct {
	Zones       map[Zone]ZoneAccumulator `json:"zones"`
	CurrentZone Zone                     `json:"currentZone"`
}

// Clone returns a deep copy so a new snapshot never aliases the prior one.
func (s MeterState) Clone() MeterState {
	zones := make(map[Zone]ZoneAccumulator, len(s.Zones))
	for z, acc := range s.Zones {
		zones[z] = acc
	}
	return MeterState{Zones: zones, CurrentZone: s.CurrentZone}
}

// SnapshotSource tags what triggered an accounting step.
type SnapshotSource string

const (
	SourceScheduled SnapshotSource = "scheduled"
	SourceManual    SnapshotSource = "manual"
)

// AccountingSnapshot is the immutable result of one accounting step covering
// every meter seen so far.
type AccountingSnapshot struct {
	ID        int64                 `json:"id"`
	Source    SnapshotSource        `json:"source"`
	CreatedAt time.Time             `json:"createdAt"`
	Meters    map[string]MeterState `json:"meters"`
}

// CloneMeters deep-copies the snapshot's meter map for the next step to
// mutate without touching this one.
func (s *AccountingSnapshot) CloneMeters() map[string]MeterState {
	meters := make(map[string]MeterState, len(s.Meters))
	for id, st := range s.Meters {
		meters[id] = st.Clone()
	}
	return meters
}

// ZoneTotals sums, per zone, the consumption recorded for that zone across
// all meters. This is the point-in-time figure of a single snapshot, not a
// running total over a reporting period.
func (s *AccountingSnapshot) ZoneTotals() map[Zone]float64 {
	totals := make(map[Zone]float64)
	for _, st := range s.Meters {
		for z, acc := range st.Zones {
			totals[z] += acc.Consumption
		}
	}
	return totals
}

// Slot is one grid-aligned point of a reporting series. A nil field value
// means no sample mapped to the slot; this is distinct from an observed zero.
type Slot struct {
	Timestamp time.Time
	Fields    map[string]*float64
}
