package sigclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadRates(t *testing.T) {
	for _, sfreq := range []float64{0, -1} {
		_, err := New(sfreq, 0)
		require.Error(t, err)
	}
	c, err := New(1000, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.FirstSamp)
}

func TestSampleTimeRoundTrip(t *testing.T) {
	c := Clock{SFreq: 250}

	tests := []struct {
		name   string
		t      float64
		sample int64
	}{
		{"zero", 0, 0},
		{"exact_grid", 0.5, 125},
		{"rounds_nearest", 0.0021, 1},
		{"rounds_half_up", 0.002, 1}, // 0.5 samples rounds away from zero
		{"negative", -0.2, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sample, c.SampleAt(tt.t))
		})
	}

	assert.InDelta(t, 0.5, c.TimeAt(125), 1e-12)
}

func TestWindowLength(t *testing.T) {
	c := Clock{SFreq: 1000}
	// round((tmax-tmin)*sfreq)+1, fixed once at construction
	assert.Equal(t, 701, c.WindowLength(-0.2, 0.5))
	assert.Equal(t, 1, c.WindowLength(0, 0))
	// floating point noise in the offsets must not change the count
	assert.Equal(t, 701, c.WindowLength(-0.2+1e-12, 0.5+1e-12))
}

func TestWindowAround(t *testing.T) {
	c := Clock{SFreq: 100}
	start, stop := c.WindowAround(1000, -0.1, 0.1)
	assert.Equal(t, int64(990), start)
	assert.Equal(t, int64(1010), stop)
	assert.Equal(t, c.WindowLength(-0.1, 0.1), int(stop-start)+1)
}

func TestTimeVectorAnchoredToGrid(t *testing.T) {
	c := Clock{SFreq: 1000}
	times := c.TimeVector(-0.002, 5)
	require.Len(t, times, 5)
	expected := []float64{-0.002, -0.001, 0, 0.001, 0.002}
	for i := range expected {
		assert.InDelta(t, expected[i], times[i], 1e-12)
	}
}

func TestDecimated(t *testing.T) {
	c := Clock{SFreq: 600, FirstSamp: 7}
	d := c.Decimated(6)
	assert.InDelta(t, 100.0, d.SFreq, 1e-12)
	assert.Equal(t, int64(7), d.FirstSamp)
}

func TestIndexNear(t *testing.T) {
	times := []float64{-0.1, 0, 0.1, 0.2}
	assert.Equal(t, 0, IndexNear(times, -1))
	assert.Equal(t, 2, IndexNear(times, 0.11))
	assert.Equal(t, 3, IndexNear(times, 5))
}
