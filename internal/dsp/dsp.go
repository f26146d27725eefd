// Package dsp holds the numerical transform kernels consumed by the epoch
// store. Kernels are pure functions over (data, rates, params); the store
// treats them as opaque and callers may substitute their own Resampler.
package dsp

import (
	"github.com/neurokit/neurokit-go/internal/errors"
)

// Resampler converts a sample vector between sampling rates.
type Resampler interface {
	Resample(samples []float64, originalRate, targetRate float64) ([]float64, error)
}

// CubicResampler resamples using Catmull-Rom cubic interpolation. It is
// the default kernel; band-limited resamplers can be plugged in through
// the Resampler contract.
type CubicResampler struct{}

// Resample implements Resampler.
func (CubicResampler) Resample(samples []float64, originalRate, targetRate float64) ([]float64, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, errors.Newf("invalid resampling rates: %g Hz -> %g Hz", originalRate, targetRate).
			Category(errors.CategoryValidation).
			Build()
	}
	if originalRate == targetRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}
	if len(samples) < 4 {
		return nil, errors.Newf("too few samples to resample: %d, need at least 4", len(samples)).
			Category(errors.CategoryResampling).
			Build()
	}

	ratio := targetRate / originalRate
	newLength := int(float64(len(samples)) * ratio)
	resampled := make([]float64, newLength)

	lastIndex := len(samples) - 3

	for i := 0; i < newLength; i++ {
		origPos := float64(i) / ratio
		index := int(origPos)

		// Clamp index to avoid out-of-bounds access
		if index < 1 {
			index = 1
		} else if index > lastIndex {
			index = lastIndex
		}

		frac := origPos - float64(index)

		y0, y1, y2, y3 := samples[index-1], samples[index], samples[index+1], samples[index+2]
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2
		a3 := y1

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + a3
	}

	return resampled, nil
}

// Decimate keeps every factor-th sample starting at offset. The result
// aliases nothing; a fresh slice is returned.
func Decimate(samples []float64, factor, offset int) ([]float64, error) {
	if factor < 1 {
		return nil, errors.Newf("decimation factor must be >= 1, got %d", factor).
			Category(errors.CategoryValidation).
			Build()
	}
	if offset < 0 || offset >= factor {
		return nil, errors.Newf("decimation offset %d outside [0, %d)", offset, factor).
			Category(errors.CategoryValidation).
			Build()
	}
	n := 0
	for i := offset; i < len(samples); i += factor {
		n++
	}
	out := make([]float64, 0, n)
	for i := offset; i < len(samples); i += factor {
		out = append(out, samples[i])
	}
	return out, nil
}

// Mean returns the arithmetic mean of samples, 0 for an empty slice.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// PeakToPeak returns max-min over samples, 0 for an empty slice.
func PeakToPeak(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	minV, maxV := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < minV {
			minV = s
		}
		if s > maxV {
			maxV = s
		}
	}
	return maxV - minV
}
