package epochs

import (
	"math"

	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/source"
)

// Crop restricts every epoch to the inclusive time window [tmin, tmax].
// Bounds snap to the nearest sample on the grid. The data must be
// preloaded: cropping rewrites the owned buffer.
func (s *Store) Crop(tmin, tmax float64) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if err := s.requirePreloaded("crop"); err != nil {
		return err
	}
	if tmin > tmax {
		return errors.Newf("crop tmin (%g) must not exceed tmax (%g)", tmin, tmax).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(s.times) == 0 {
		return nil
	}
	dataMin, dataMax := s.times[0], s.times[len(s.times)-1]
	if tmax < dataMin-timeTol || tmin > dataMax+timeTol {
		return errors.Newf("crop window [%g, %g] lies entirely outside the data range [%g, %g]",
			tmin, tmax, dataMin, dataMax).
			Category(errors.CategoryValidation).
			Build()
	}
	if tmin < dataMin-timeTol || tmax > dataMax+timeTol {
		s.log.Warn("crop window clamped to the data range",
			"tmin", tmin, "tmax", tmax, "data_tmin", dataMin, "data_tmax", dataMax)
		tmin = math.Max(tmin, dataMin)
		tmax = math.Min(tmax, dataMax)
	}

	lo := sigIndexCeil(s.times, tmin)
	hi := sigIndexFloor(s.times, tmax)
	if hi < lo {
		return errors.Newf("crop window [%g, %g] contains no samples", tmin, tmax).
			Category(errors.CategoryValidation).
			Build()
	}
	if lo == 0 && hi == len(s.times)-1 {
		return nil
	}

	s.cube = s.cube.cropTime(lo, hi)
	s.times = append([]float64(nil), s.times[lo:hi+1]...)
	s.tmin = s.times[0]
	s.tmax = s.times[len(s.times)-1]
	s.refreshBaselineCropped()
	s.metrics.RecordTransform("crop")
	s.log.Debug("epochs cropped", "tmin", s.tmin, "tmax", s.tmax, "n_times", len(s.times))
	return nil
}

// refreshBaselineCropped re-derives the cropped-baseline flag after a
// time-axis change. The baseline window itself is kept for provenance.
func (s *Store) refreshBaselineCropped() {
	if s.baseline == nil || len(s.times) == 0 {
		return
	}
	if s.baseline.BMin < s.times[0]-timeTol || s.baseline.BMax > s.times[len(s.times)-1]+timeTol {
		s.baselineCropped = true
		s.log.Warn("baseline period cropped out of the data window",
			"bmin", s.baseline.BMin, "bmax", s.baseline.BMax)
	}
}

// Decimate keeps every factor-th sample starting at offset, lowering the
// nominal rate by factor without filtering. When the low-pass frequency
// of the recording is unknown or the decimated rate dips under three
// times the low-pass edge a warning is logged: decimation without an
// adequate anti-aliasing filter folds high frequencies into the result.
// Lazy stores accumulate the decimation and apply it on access; chained
// calls compose exactly as one combined call.
func (s *Store) Decimate(factor, offset int) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if factor < 1 {
		return errors.Newf("decimation factor must be >= 1, got %d", factor).
			Category(errors.CategoryValidation).
			Build()
	}
	if offset < 0 || offset >= factor {
		return errors.Newf("decimation offset %d outside [0, %d)", offset, factor).
			Category(errors.CategoryValidation).
			Build()
	}
	if factor == 1 && offset == 0 {
		return nil
	}
	if len(s.times) > 0 && offset >= len(s.times) {
		return errors.Newf("decimation offset %d exceeds epoch length %d", offset, len(s.times)).
			Category(errors.CategoryValidation).
			Build()
	}

	newRate := s.info.SFreq / float64(factor)
	if s.info.Lowpass <= 0 {
		s.log.Warn("decimating a recording with unknown low-pass edge, aliasing is possible",
			"factor", factor, "new_sfreq", newRate)
	} else if newRate < 3*s.info.Lowpass {
		s.log.Warn("decimated rate is under three times the low-pass edge, aliasing is likely",
			"factor", factor, "new_sfreq", newRate, "lowpass", s.info.Lowpass)
	}

	if s.cube != nil {
		s.cube = s.cube.decimTime(factor, offset)
	} else {
		// Compose with any pending decimation: selecting every factor-th
		// of an already decimated grid multiplies the strides.
		s.def.offset += offset * s.def.decim
		s.def.decim *= factor
	}

	newTimes := make([]float64, 0, (len(s.times)-offset+factor-1)/factor)
	for i := offset; i < len(s.times); i += factor {
		newTimes = append(newTimes, s.times[i])
	}
	s.times = newTimes
	s.info.SFreq = newRate
	if len(s.times) > 0 {
		s.tmin = s.times[0]
		s.tmax = s.times[len(s.times)-1]
	}
	s.metrics.RecordTransform("decimate")
	return nil
}

// Resample converts every epoch to a new sampling rate with the
// configured resampler kernel. The data must be preloaded.
func (s *Store) Resample(sfreq float64) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if err := s.requirePreloaded("resample"); err != nil {
		return err
	}
	if sfreq <= 0 {
		return errors.Newf("target rate must be positive, got %g Hz", sfreq).
			Category(errors.CategoryResampling).
			Build()
	}
	if nearlyEqual(sfreq, s.info.SFreq) {
		return nil
	}
	if s.cube.ne == 0 || s.cube.nc == 0 {
		s.info.SFreq = sfreq
		return nil
	}

	// Probe one row for the output length so the new buffer can be
	// allocated up front.
	probe, err := s.resampler.Resample(s.cube.row(0, 0), s.info.SFreq, sfreq)
	if err != nil {
		return err
	}
	newNT := len(probe)

	out := newCube(s.cube.ne, s.cube.nc, newNT)
	copy(out.row(0, 0), probe)
	err = runParallel(s.cube.ne, s.workers, func(e int) error {
		for ch := 0; ch < s.cube.nc; ch++ {
			if e == 0 && ch == 0 {
				continue
			}
			res, err := s.resampler.Resample(s.cube.row(e, ch), s.info.SFreq, sfreq)
			if err != nil {
				return err
			}
			if len(res) != newNT {
				return errors.Newf("resampler produced %d samples for epoch %d channel %d, expected %d",
					len(res), e, ch, newNT).
					Category(errors.CategoryResampling).
					Build()
			}
			copy(out.row(e, ch), res)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cube = out
	oldRate := s.info.SFreq
	s.info.SFreq = sfreq
	newTimes := make([]float64, newNT)
	for i := range newTimes {
		newTimes[i] = s.tmin + float64(i)/sfreq
	}
	s.times = newTimes
	if newNT > 0 {
		s.tmax = s.times[newNT-1]
	}
	s.metrics.RecordTransform("resample")
	s.log.Debug("epochs resampled", "from_sfreq", oldRate, "to_sfreq", sfreq, "n_times", newNT)
	return nil
}

// ShiftTime relabels the time axis. With relative=true shift is added to
// every sample time; otherwise the first sample is placed at shift and
// the rest follow at the sampling interval. The data is untouched and
// must be preloaded so the relabeling is not silently undone by a later
// materialization.
func (s *Store) ShiftTime(shift float64, relative bool) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if err := s.requirePreloaded("shift time axis"); err != nil {
		return err
	}
	if len(s.times) == 0 {
		return nil
	}

	delta := shift
	if !relative {
		delta = shift - s.times[0]
	}
	for i := range s.times {
		s.times[i] += delta
	}
	s.tmin += delta
	s.tmax += delta
	s.refreshBaselineCropped()
	s.metrics.RecordTransform("shift_time")
	return nil
}

// ApplyFunc runs fn in place on every (epoch, channel) row of the picked
// channels. fn must keep the row length; the store must be preloaded.
// Epochs are processed on the worker pool, so fn must be safe to call
// concurrently on distinct rows.
func (s *Store) ApplyFunc(fn func(ch source.Channel, row []float64) error, picks []string) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if err := s.requirePreloaded("apply function"); err != nil {
		return err
	}
	if fn == nil {
		return errors.Newf("nil function").
			Category(errors.CategoryValidation).
			Build()
	}

	chIdx := s.allChannelIndices()
	if picks != nil {
		var err error
		chIdx, err = s.pickIndices(picks)
		if err != nil {
			return err
		}
	}

	err := runParallel(s.cube.ne, s.workers, func(e int) error {
		for _, ch := range chIdx {
			if err := fn(s.info.Channels[ch], s.cube.row(e, ch)); err != nil {
				return errors.Wrap(err).
					Category(errors.CategoryState).
					Context("epoch", e).
					Context("channel", s.info.Channels[ch].Name).
					Build()
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordTransform("apply")
	return nil
}

// PickChannels restricts the store to the named channels, order as given.
// The data must be preloaded.
func (s *Store) PickChannels(picks []string) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if err := s.requirePreloaded("pick channels"); err != nil {
		return err
	}
	chIdx, err := s.pickIndices(picks)
	if err != nil {
		return err
	}
	if len(chIdx) == 0 {
		return errors.Newf("channel selection is empty").
			Category(errors.CategoryValidation).
			Build()
	}

	s.cube = s.cube.keepChannels(chIdx)
	newChans := make([]source.Channel, len(chIdx))
	for i, ch := range chIdx {
		newChans[i] = s.info.Channels[ch]
	}
	s.info.Channels = newChans
	s.metrics.RecordTransform("pick")
	return nil
}

// sigIndexCeil returns the first index whose time is >= t (within
// tolerance); len(times) when none.
func sigIndexCeil(times []float64, t float64) int {
	for i, tt := range times {
		if tt >= t-timeTol {
			return i
		}
	}
	return len(times)
}

// sigIndexFloor returns the last index whose time is <= t (within
// tolerance); -1 when none.
func sigIndexFloor(times []float64, t float64) int {
	for i := len(times) - 1; i >= 0; i-- {
		if times[i] <= t+timeTol {
			return i
		}
	}
	return -1
}
