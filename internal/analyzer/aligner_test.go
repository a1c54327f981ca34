package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestAlign_RoundsToNearestGridLine(t *testing.T) {
	samples := []Sample{
		{Timestamp: ts(10, 7), Fields: map[string]float64{"energy": 100}},
		{Timestamp: ts(10, 8), Fields: map[string]float64{"power": 250}},
	}

	slots := Align(samples, ts(10, 0), ts(10, 30), 15*time.Minute, []string{"energy", "power"})
	require.Len(t, slots, 3)

	// 10:07 is nearer 10:00, 10:08 nearer 10:15.
	assert.Equal(t, ts(10, 0), slots[0].Timestamp)
	require.NotNil(t, slots[0].Fields["energy"])
	assert.Equal(t, 100.0, *slots[0].Fields["energy"])
	assert.Nil(t, slots[0].Fields["power"])

	assert.Equal(t, ts(10, 15), slots[1].Timestamp)
	require.NotNil(t, slots[1].Fields["power"])
	assert.Equal(t, 250.0, *slots[1].Fields["power"])
	assert.Nil(t, slots[1].Fields["energy"])
}

func TestAlign_EmptySlotsCarryNullSentinel(t *testing.T) {
	slots := Align(nil, ts(10, 0), ts(11, 0), 15*time.Minute, []string{"energy"})
	require.Len(t, slots, 5)

	for _, slot := range slots {
		assert.Nil(t, slot.Fields["energy"], "gap slot must be null, not zero")
	}
}

func TestAlign_ObservedZeroIsNotAGap(t *testing.T) {
	samples := []Sample{
		{Timestamp: ts(10, 0), Fields: map[string]float64{"energy": 0}},
	}
	slots := Align(samples, ts(10, 0), ts(10, 15), 15*time.Minute, []string{"energy"})
	require.Len(t, slots, 2)

	require.NotNil(t, slots[0].Fields["energy"])
	assert.Equal(t, 0.0, *slots[0].Fields["energy"])
	assert.Nil(t, slots[1].Fields["energy"])
}

func TestAlign_LastWriteWinsPerField(t *testing.T) {
	// Both samples land on the 10:00 slot. The later one overwrites the
	// fields it carries; fields it does not mention keep earlier values.
	samples := []Sample{
		{Timestamp: ts(10, 1), Fields: map[string]float64{"energy": 100, "power": 50}},
		{Timestamp: ts(10, 5), Fields: map[string]float64{"energy": 120}},
	}

	slots := Align(samples, ts(10, 0), ts(10, 0), 15*time.Minute, []string{"energy", "power"})
	require.Len(t, slots, 1)

	require.NotNil(t, slots[0].Fields["energy"])
	assert.Equal(t, 120.0, *slots[0].Fields["energy"])
	require.NotNil(t, slots[0].Fields["power"])
	assert.Equal(t, 50.0, *slots[0].Fields["power"])
}

func TestAlign_SampleBeforeGridIsDropped(t *testing.T) {
	samples := []Sample{
		{Timestamp: ts(9, 30), Fields: map[string]float64{"energy": 1}},
	}
	slots := Align(samples, ts(10, 0), ts(10, 15), 15*time.Minute, []string{"energy"})
	require.Len(t, slots, 2)
	assert.Nil(t, slots[0].Fields["energy"])
}

func TestAlign_DegenerateInputs(t *testing.T) {
	assert.Nil(t, Align(nil, ts(10, 0), ts(9, 0), 15*time.Minute, []string{"energy"}))
	assert.Nil(t, Align(nil, ts(10, 0), ts(11, 0), 0, []string{"energy"}))
}
