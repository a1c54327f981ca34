// Package analyzer turns irregular meter samples into fixed-grid series and
// derives interval consumption figures from them.
package analyzer

import (
	"math"
	"time"

	"zonemeter/internal/models"
)

// Sample is one raw input point for alignment. Fields carries whatever
// counter fields the sample reported; absent fields stay absent.
type Sample struct {
	Timestamp time.Time
	Fields    map[string]float64
}

// Align buckets samples onto the fixed grid [from, to] stepping by step and
// returns one slot per grid line, in time order.
//
// A sample maps to its nearest grid line (a 10:07 sample lands on 10:00 with
// a 15 minute step, a 10:08 sample on 10:15). When several samples hit the
// same slot, each field is taken from the last sample that carried it, so a
// later sample overrides earlier values field by field without erasing
// fields it does not mention. Slots no sample mapped to keep nil for every
// requested field: "no data" stays distinguishable from an observed zero.
func Align(samples []Sample, from, to time.Time, step time.Duration, fields []string) []models.Slot {
	if step <= 0 || to.Before(from) {
		return nil
	}

	// Working record per occupied grid line.
	occupied := make(map[int64]map[string]float64)
	for _, s := range samples {
		slot := nearestSlot(s.Timestamp, from, step)
		if slot < 0 {
			continue
		}
		rec, ok := occupied[slot]
		if !ok {
			rec = make(map[string]float64, len(s.Fields))
			occupied[slot] = rec
		}
		for _, f := range fields {
			if v, ok := s.Fields[f]; ok {
				rec[f] = v
			}
		}
	}

	var slots []models.Slot
	for i := int64(0); ; i++ {
		ts := from.Add(time.Duration(i) * step)
		if ts.After(to) {
			break
		}
		slot := models.Slot{Timestamp: ts, Fields: make(map[string]*float64, len(fields))}
		rec := occupied[i]
		for _, f := range fields {
			if rec != nil {
				if v, ok := rec[f]; ok {
					value := v
					slot.Fields[f] = &value
					continue
				}
			}
			slot.Fields[f] = nil
		}
		slots = append(slots, slot)
	}
	return slots
}

// nearestSlot returns the grid index closest to t, or -1 for samples before
// the grid start that round below it.
func nearestSlot(t time.Time, from time.Time, step time.Duration) int64 {
	offset := t.Sub(from).Minutes()
	idx := int64(math.Round(offset / step.Minutes()))
	if idx < 0 {
		return -1
	}
	return idx
}
