package sanitize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"plain value", 5.0, 5.0},
		{"zero", 0, 0},
		{"negative within range", -42.5, -42.5},
		{"NaN", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"beyond max magnitude", 2e12, 0},
		{"beyond max magnitude negative", -2e12, 0},
		{"at max magnitude", 1e12, 1e12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Counter(tt.in))
		})
	}
}

func TestCounterPtr(t *testing.T) {
	assert.Equal(t, 0.0, CounterPtr(nil))

	v := 17.5
	assert.Equal(t, 17.5, CounterPtr(&v))
}

func TestForAverage(t *testing.T) {
	// Same clamps as Counter plus the near-zero flush.
	assert.Equal(t, 0.0, ForAverage(math.NaN()))
	assert.Equal(t, 0.0, ForAverage(2e12))
	assert.Equal(t, 0.0, ForAverage(1e-7))
	assert.Equal(t, 0.0, ForAverage(-1e-7))
	assert.Equal(t, 5.0, ForAverage(5.0))
	assert.Equal(t, 1e-5, ForAverage(1e-5))
}

func TestClampDelta(t *testing.T) {
	assert.Equal(t, 30.0, ClampDelta(30))
	assert.Equal(t, 0.0, ClampDelta(-30), "counter reset contributes nothing")
	assert.Equal(t, 0.0, ClampDelta(math.Inf(1)))
}
