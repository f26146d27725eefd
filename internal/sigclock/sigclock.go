// Package sigclock maps between real time and integer sample indices for a
// regularly sampled signal. All functions are pure; a Clock carries only the
// sampling rate and the index of the first sample in the recording.
package sigclock

import (
	"math"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// Clock describes the sampling grid of a continuous recording.
type Clock struct {
	SFreq     float64 // sampling rate in Hz
	FirstSamp int64   // absolute index of the first available sample
}

// New returns a Clock for the given sampling rate and first-sample offset.
func New(sfreq float64, firstSamp int64) (Clock, error) {
	if sfreq <= 0 || math.IsNaN(sfreq) || math.IsInf(sfreq, 0) {
		return Clock{}, errors.Newf("invalid sampling rate %g Hz, must be a positive finite number", sfreq).
			Category(errors.CategoryValidation).
			Build()
	}
	return Clock{SFreq: sfreq, FirstSamp: firstSamp}, nil
}

// SampleAt returns the sample index nearest to the relative time t (seconds
// since FirstSamp). Rounding is to nearest with ties away from zero, which
// keeps window edges symmetric around the anchor.
func (c Clock) SampleAt(t float64) int64 {
	return int64(math.Round(t * c.SFreq))
}

// TimeAt returns the relative time in seconds of sample index s.
func (c Clock) TimeAt(s int64) float64 {
	return float64(s) / c.SFreq
}

// AbsoluteTimeAt returns the absolute recording time of sample index s,
// accounting for the first-sample offset.
func (c Clock) AbsoluteTimeAt(s int64) float64 {
	return float64(s-c.FirstSamp) / c.SFreq
}

// WindowLength returns the number of samples in the inclusive window
// [tmin, tmax]. The count is fixed by rounding the span once, so every
// window with the same offsets has the same length regardless of the
// anchoring sample.
func (c Clock) WindowLength(tmin, tmax float64) int {
	return int(math.Round((tmax-tmin)*c.SFreq)) + 1
}

// WindowAround returns the inclusive sample range [start, stop] of the
// window (tmin, tmax) anchored at sample anchor. stop-start+1 equals
// WindowLength(tmin, tmax).
func (c Clock) WindowAround(anchor int64, tmin, tmax float64) (start, stop int64) {
	start = anchor + c.SampleAt(tmin)
	stop = start + int64(c.WindowLength(tmin, tmax)) - 1
	return start, stop
}

// TimeVector returns n sample times starting at tmin, spaced by the
// sampling interval. The vector is anchored exactly at the sample grid:
// element i is (round(tmin*sfreq)+i)/sfreq, which tolerates floating point
// noise in tmin while preserving exact sample alignment.
func (c Clock) TimeVector(tmin float64, n int) []float64 {
	first := c.SampleAt(tmin)
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(first+int64(i)) / c.SFreq
	}
	return times
}

// Decimated returns the clock describing the sampling grid after keeping
// every factor-th sample.
func (c Clock) Decimated(factor int) Clock {
	return Clock{SFreq: c.SFreq / float64(factor), FirstSamp: c.FirstSamp}
}

// IndexNear returns the index into times of the sample nearest to t.
// times must be sorted ascending. Used to clamp crop bounds onto the grid.
func IndexNear(times []float64, t float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, tt := range times {
		d := math.Abs(tt - t)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
