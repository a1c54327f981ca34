package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"zonemeter/internal/models"
)

func f(v float64) *float64 { return &v }

// buildSlots lays the given values onto a 15-minute grid; nil means a gap.
func buildSlots(values ...*float64) []models.Slot {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	slots := make([]models.Slot, len(values))
	for i, v := range values {
		slots[i] = models.Slot{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Fields:    map[string]*float64{"energy": v},
		}
	}
	return slots
}

func TestConsumptionOverWindow_MonotonicCounter(t *testing.T) {
	slots := buildSlots(f(100), f(110), f(125), f(150))
	assert.Equal(t, 50.0, ConsumptionOverWindow(slots, "energy"))
}

func TestConsumptionOverWindow_IgnoresGaps(t *testing.T) {
	slots := buildSlots(nil, f(100), nil, f(140), nil)
	assert.Equal(t, 40.0, ConsumptionOverWindow(slots, "energy"))
}

func TestConsumptionOverWindow_CounterResetClampsToZero(t *testing.T) {
	slots := buildSlots(f(500), f(10))
	assert.Equal(t, 0.0, ConsumptionOverWindow(slots, "energy"))
}

func TestConsumptionOverWindow_NoData(t *testing.T) {
	assert.Equal(t, 0.0, ConsumptionOverWindow(buildSlots(nil, nil, nil), "energy"))
	assert.Equal(t, 0.0, ConsumptionOverWindow(nil, "energy"))
}

func TestConsumptionOverWindow_SingleSample(t *testing.T) {
	slots := buildSlots(nil, f(42), nil)
	assert.Equal(t, 0.0, ConsumptionOverWindow(slots, "energy"))
}

func TestConsumptionOverWindow_AbsurdValueContributesNothing(t *testing.T) {
	// An absurd endpoint makes the difference absurd; it sanitizes to 0.
	slots := buildSlots(f(2e12), f(100))
	assert.Equal(t, 0.0, ConsumptionOverWindow(slots, "energy"))

	slots = buildSlots(f(100), f(3e12))
	assert.Equal(t, 0.0, ConsumptionOverWindow(slots, "energy"))
}

func TestAverageOverWindow(t *testing.T) {
	slots := buildSlots(f(10), nil, f(20), nil)

	avg := AverageOverWindow(slots, "energy")
	assert.Equal(t, 15.0, avg.Average, "gaps are excluded from the mean")
	assert.Equal(t, 4, avg.SampleCount, "but still counted as slots")
}

func TestAverageOverWindow_AllGaps(t *testing.T) {
	avg := AverageOverWindow(buildSlots(nil, nil), "energy")
	assert.Equal(t, 0.0, avg.Average)
	assert.Equal(t, 2, avg.SampleCount)
}

func TestAverageOverWindow_FlushesNumericDust(t *testing.T) {
	slots := buildSlots(f(1e-8), f(-1e-8))
	avg := AverageOverWindow(slots, "energy")
	assert.Equal(t, 0.0, avg.Average)
}
