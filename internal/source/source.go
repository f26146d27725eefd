// Package source defines the continuous-signal provider contract consumed
// by the epoch pipeline, plus concrete in-memory and WAV-backed providers.
package source

import (
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/sigclock"
)

// ChannelType classifies a channel for per-type rejection thresholds.
type ChannelType string

const (
	TypeEEG  ChannelType = "eeg"
	TypeMEG  ChannelType = "meg"
	TypeEOG  ChannelType = "eog"
	TypeECG  ChannelType = "ecg"
	TypeEMG  ChannelType = "emg"
	TypeStim ChannelType = "stim"
	TypeMisc ChannelType = "misc"
)

// Channel describes one channel of a recording.
type Channel struct {
	Name string
	Type ChannelType
	Unit string
	Cal  float64 // calibration factor applied by the provider; 1.0 when none
}

// Info is the immutable description of a continuous recording.
type Info struct {
	SFreq     float64
	FirstSamp int64
	Channels  []Channel
	Lowpass   float64 // Hz; 0 when unknown or disabled
	Highpass  float64 // Hz; 0 when unknown or disabled
}

// Clock returns the sample clock of this recording.
func (in Info) Clock() sigclock.Clock {
	return sigclock.Clock{SFreq: in.SFreq, FirstSamp: in.FirstSamp}
}

// ChannelNames returns the channel names in order.
func (in Info) ChannelNames() []string {
	names := make([]string, len(in.Channels))
	for i, ch := range in.Channels {
		names[i] = ch.Name
	}
	return names
}

// Continuous is a continuous-signal provider. It may be preloaded or lazy;
// the epoch pipeline never assumes which.
type Continuous interface {
	// Info returns the recording description.
	Info() Info
	// Read returns one slice per requested channel covering the absolute
	// sample range [start, stop). Reads outside the available range fail
	// with a range error; no partial windows are returned.
	Read(chIdx []int, start, stop int64) ([][]float64, error)
	// NSamples returns the number of available samples.
	NSamples() int64
}

// rangeError builds the out-of-range read error shared by providers.
func rangeError(start, stop, first, last int64) error {
	return errors.Newf("read window [%d, %d) outside available samples [%d, %d)", start, stop, first, last).
		Category(errors.CategorySource).
		Build()
}

// validateWindow checks a requested window against provider bounds.
func validateWindow(info Info, n int64, chIdx []int, start, stop int64) error {
	if stop < start {
		return errors.Newf("invalid read window: stop %d before start %d", stop, start).
			Category(errors.CategoryValidation).
			Build()
	}
	for _, ci := range chIdx {
		if ci < 0 || ci >= len(info.Channels) {
			return errors.Newf("channel index %d out of range (%d channels)", ci, len(info.Channels)).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	first := info.FirstSamp
	last := first + n
	if start < first || stop > last {
		return rangeError(start, stop, first, last)
	}
	return nil
}

// MemorySource is a fully materialized Continuous provider.
type MemorySource struct {
	info Info
	data [][]float64 // one slice per channel, equal lengths
}

// NewMemorySource wraps per-channel sample slices as a Continuous provider.
func NewMemorySource(info Info, data [][]float64) (*MemorySource, error) {
	if len(data) != len(info.Channels) {
		return nil, errors.Newf("channel count mismatch: %d channels described, %d data rows", len(info.Channels), len(data)).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(data) > 0 {
		n := len(data[0])
		for i, ch := range data {
			if len(ch) != n {
				return nil, errors.Newf("channel %q has %d samples, expected %d", info.Channels[i].Name, len(ch), n).
					Category(errors.CategoryValidation).
					Build()
			}
		}
	}
	if info.SFreq <= 0 {
		return nil, errors.Newf("invalid sampling rate %g Hz", info.SFreq).
			Category(errors.CategoryValidation).
			Build()
	}
	return &MemorySource{info: info, data: data}, nil
}

// Info implements Continuous.
func (m *MemorySource) Info() Info {
	return m.info
}

// NSamples implements Continuous.
func (m *MemorySource) NSamples() int64 {
	if len(m.data) == 0 {
		return 0
	}
	return int64(len(m.data[0]))
}

// Read implements Continuous. Returned slices are copies; callers own them.
func (m *MemorySource) Read(chIdx []int, start, stop int64) ([][]float64, error) {
	if err := validateWindow(m.info, m.NSamples(), chIdx, start, stop); err != nil {
		return nil, err
	}
	lo := start - m.info.FirstSamp
	hi := stop - m.info.FirstSamp
	out := make([][]float64, len(chIdx))
	for i, ci := range chIdx {
		seg := make([]float64, hi-lo)
		copy(seg, m.data[ci][lo:hi])
		if cal := m.info.Channels[ci].Cal; cal != 0 && cal != 1 {
			for j := range seg {
				seg[j] *= cal
			}
		}
		out[i] = seg
	}
	return out, nil
}
