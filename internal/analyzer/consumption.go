package analyzer

import (
	"zonemeter/internal/models"
	"zonemeter/internal/sanitize"
)

// WindowAverage is the result of averaging one field over a grid window.
// SampleCount is the total number of grid slots, not the number of non-null
// values; callers use the two together as a data-completeness diagnostic.
type WindowAverage struct {
	Average     float64
	SampleCount int
}

// ConsumptionOverWindow derives the counter consumption for field across the
// aligned window: the sanitized, clamped difference between the last and the
// first non-null value. Windows with no data yield 0.
func ConsumptionOverWindow(slots []models.Slot, field string) float64 {
	var first, last *float64
	for i := range slots {
		v := slots[i].Fields[field]
		if v == nil {
			continue
		}
		if first == nil {
			first = v
		}
		last = v
	}
	if first == nil || last == nil {
		return 0
	}
	return sanitize.ClampDelta(*last - *first)
}

// AverageOverWindow averages all non-null values of field. Null slots are
// excluded from the mean but still counted in SampleCount.
func AverageOverWindow(slots []models.Slot, field string) WindowAverage {
	var sum float64
	var n int
	for i := range slots {
		if v := slots[i].Fields[field]; v != nil {
			sum += sanitize.Counter(*v)
			n++
		}
	}
	avg := WindowAverage{SampleCount: len(slots)}
	if n > 0 {
		avg.Average = sanitize.ForAverage(sum / float64(n))
	}
	return avg
}
