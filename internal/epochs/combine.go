package epochs

import (
	"github.com/google/uuid"

	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/metadata"
	"github.com/neurokit/neurokit-go/internal/source"
)

// AddChannels appends the channels of other to s, epoch for epoch. Both
// stores must be preloaded, hold the same number of epochs on the same
// time axis and sampling rate, and share no channel name. other is left
// untouched; its data is copied.
func (s *Store) AddChannels(other *Store) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if err := other.checkConsistent(); err != nil {
		return err
	}
	if err := s.requirePreloaded("add channels"); err != nil {
		return err
	}
	if err := other.requirePreloaded("add channels"); err != nil {
		return err
	}
	if !nearlyEqual(s.info.SFreq, other.info.SFreq) {
		return errors.Newf("sampling rates differ: %g Hz vs %g Hz", s.info.SFreq, other.info.SFreq).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(s.times) != len(other.times) || !nearlyEqual(s.tmin, other.tmin) {
		return errors.Newf("time axes differ: %d samples from %g vs %d samples from %g",
			len(s.times), s.tmin, len(other.times), other.tmin).
			Category(errors.CategoryValidation).
			Build()
	}
	if s.NEpochs() != other.NEpochs() {
		return errors.Newf("epoch counts differ: %d vs %d", s.NEpochs(), other.NEpochs()).
			Category(errors.CategoryValidation).
			Build()
	}
	names := make(map[string]struct{}, len(s.info.Channels))
	for _, ch := range s.info.Channels {
		names[ch.Name] = struct{}{}
	}
	for _, ch := range other.info.Channels {
		if _, clash := names[ch.Name]; clash {
			return errors.Newf("channel %q exists in both stores", ch.Name).
				Category(errors.CategoryConflict).
				Build()
		}
	}

	merged := newCube(s.cube.ne, s.cube.nc+other.cube.nc, s.cube.nt)
	for e := 0; e < s.cube.ne; e++ {
		for ch := 0; ch < s.cube.nc; ch++ {
			copy(merged.row(e, ch), s.cube.row(e, ch))
		}
		for ch := 0; ch < other.cube.nc; ch++ {
			copy(merged.row(e, s.cube.nc+ch), other.cube.row(e, ch))
		}
	}
	s.cube = merged
	s.info.Channels = append(append([]source.Channel(nil), s.info.Channels...), other.info.Channels...)
	s.metrics.RecordTransform("add_channels")
	return nil
}

// Concatenate joins stores end to end into a new store. All inputs must
// be preloaded with identical channel layouts, time axes, sampling rates
// and baseline windows. Event tables union; a name mapped to different
// codes across inputs is an error. Selections are renumbered so they
// stay strictly increasing across the seams, and drop logs append in
// input order. The result gets a fresh identity.
func Concatenate(stores ...*Store) (*Store, error) {
	if len(stores) == 0 {
		return nil, errors.Newf("nothing to concatenate").
			Category(errors.CategoryValidation).
			Build()
	}
	first := stores[0]
	if err := first.checkConsistent(); err != nil {
		return nil, err
	}
	if err := first.requirePreloaded("concatenate"); err != nil {
		return nil, err
	}
	if len(stores) == 1 {
		return first.Copy(), nil
	}

	for _, other := range stores[1:] {
		if err := other.checkConsistent(); err != nil {
			return nil, err
		}
		if err := other.requirePreloaded("concatenate"); err != nil {
			return nil, err
		}
		if err := compatibleLayout(first, other); err != nil {
			return nil, err
		}
	}

	// Union of id maps, refusing conflicting assignments.
	ids := make(events.IDMap)
	for _, st := range stores {
		for name, code := range st.table.IDs {
			if prev, ok := ids[name]; ok && prev != code {
				return nil, errors.Newf("event name %q maps to code %d and %d across stores", name, prev, code).
					Category(errors.CategoryConflict).
					Build()
			}
			ids[name] = code
		}
	}

	totalEpochs := 0
	totalRaw := 0
	for _, st := range stores {
		totalEpochs += st.NEpochs()
		totalRaw += len(st.dropLog)
	}

	out := &Store{
		id:                 uuid.New(),
		info:               first.info,
		rawSFreq:           first.rawSFreq,
		rawFirstSamp:       first.rawFirstSamp,
		tmin:               first.tmin,
		tmax:               first.tmax,
		times:              append([]float64(nil), first.times...),
		baselineApplied:    first.baselineApplied,
		baselineCropped:    first.baselineCropped,
		lastReject:         first.lastReject,
		lastFlat:           first.lastFlat,
		rejectTmin:         first.rejectTmin,
		rejectTmax:         first.rejectTmax,
		rejectByAnnotation: first.rejectByAnnotation,
		resampler:          first.resampler,
		workers:            first.workers,
		metrics:            first.metrics,
		log:                logging.ForService("epochs"),
	}
	out.info.Channels = append([]source.Channel(nil), first.info.Channels...)
	if first.baseline != nil {
		b := *first.baseline
		out.baseline = &b
	}

	out.cube = newCube(totalEpochs, len(out.info.Channels), len(out.times))
	out.dropLog = NewDropLog(0)
	e := 0
	offset := 0
	withMeta := 0
	var metas []*metadata.Table
	for _, st := range stores {
		for se := 0; se < st.cube.ne; se++ {
			for ch := 0; ch < st.cube.nc; ch++ {
				copy(out.cube.row(e, ch), st.cube.row(se, ch))
			}
			e++
		}
		out.rowEvents = append(out.rowEvents, st.rowEvents...)
		for _, origIdx := range st.selection {
			out.selection = append(out.selection, origIdx+offset)
		}
		out.dropLog = append(out.dropLog, st.dropLog.Clone()...)
		offset += len(st.dropLog)
		if st.meta != nil {
			withMeta++
			metas = append(metas, st.meta)
		}
	}

	if withMeta > 0 {
		if withMeta != len(stores) {
			return nil, errors.Newf("%d of %d stores carry metadata; all or none must", withMeta, len(stores)).
				Category(errors.CategoryMetadata).
				Build()
		}
		merged := metas[0]
		for _, m := range metas[1:] {
			var err error
			merged, err = merged.Concat(m)
			if err != nil {
				return nil, err
			}
		}
		out.meta = merged
	}

	table, err := events.NewTable(out.rowEvents, ids)
	if err != nil {
		return nil, err
	}
	out.table = table

	out.metrics.SetStoreEpochs(out.NEpochs())
	return out, nil
}

// compatibleLayout checks the structural preconditions for combining
// two stores end to end.
func compatibleLayout(a, b *Store) error {
	if !nearlyEqual(a.info.SFreq, b.info.SFreq) {
		return errors.Newf("sampling rates differ: %g Hz vs %g Hz", a.info.SFreq, b.info.SFreq).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(a.times) != len(b.times) || !nearlyEqual(a.tmin, b.tmin) {
		return errors.Newf("time axes differ: %d samples from %g vs %d samples from %g",
			len(a.times), a.tmin, len(b.times), b.tmin).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(a.info.Channels) != len(b.info.Channels) {
		return errors.Newf("channel counts differ: %d vs %d", len(a.info.Channels), len(b.info.Channels)).
			Category(errors.CategoryValidation).
			Build()
	}
	for i := range a.info.Channels {
		if a.info.Channels[i].Name != b.info.Channels[i].Name || a.info.Channels[i].Type != b.info.Channels[i].Type {
			return errors.Newf("channel %d differs: %s (%s) vs %s (%s)", i,
				a.info.Channels[i].Name, a.info.Channels[i].Type,
				b.info.Channels[i].Name, b.info.Channels[i].Type).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	ab, bb := a.baseline, b.baseline
	switch {
	case ab == nil && bb == nil:
	case ab == nil || bb == nil:
		return errors.Newf("baseline windows differ: one store has none").
			Category(errors.CategoryValidation).
			Build()
	case !nearlyEqual(ab.BMin, bb.BMin) || !nearlyEqual(ab.BMax, bb.BMax):
		return errors.Newf("baseline windows differ: [%g, %g] vs [%g, %g]",
			ab.BMin, ab.BMax, bb.BMin, bb.BMax).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
