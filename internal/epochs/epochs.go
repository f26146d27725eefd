// Package epochs implements the epoched-segment engine: it carves a
// continuous multichannel recording into event-aligned fixed-length
// segments and manages their selection, rejection and transformation
// lifecycle. A store is either preloaded (one owned contiguous buffer,
// mutated in place) or lazy (segments re-read from the source and the
// pending pipeline re-applied on every access).
package epochs

import (
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/dsp"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/metadata"
	obsmetrics "github.com/neurokit/neurokit-go/internal/observability/metrics"
	"github.com/neurokit/neurokit-go/internal/reject"
	"github.com/neurokit/neurokit-go/internal/sigclock"
	"github.com/neurokit/neurokit-go/internal/source"
)

// timeTol is the tolerance used when matching user-supplied time bounds
// against the sample grid.
const timeTol = 1e-9

// Baseline is a (bmin, bmax) correction window in seconds.
type Baseline struct {
	BMin float64
	BMax float64
}

// deferred carries the lazy-mode state: the source reference plus the
// pending decimation to re-apply on every access.
type deferred struct {
	src    source.Continuous
	decim  int
	offset int
}

// Store owns the epoch data and its selection/rejection lifecycle.
type Store struct {
	id   uuid.UUID
	info source.Info // current channel metadata; SFreq is the current rate

	rawSFreq     float64 // source rate before decimation/resampling
	rawFirstSamp int64

	table     *events.Table  // id map (possibly extended by merge dedup)
	rowEvents []events.Event // one event per retained row

	tmin, tmax float64
	times      []float64

	baseline        *Baseline
	baselineApplied bool
	baselineCropped bool

	selection []int
	dropLog   DropLog

	cube *cube     // owned buffer when materialized
	def  *deferred // source reference when lazy

	lastReject, lastFlat   reject.Thresholds
	rejectTmin, rejectTmax *float64
	rejectByAnnotation     bool
	badDropped             bool // rejection config has been applied to every row

	anns annotations.Provider
	meta *metadata.Table

	resampler dsp.Resampler
	workers   int

	metrics *obsmetrics.EpochMetrics
	log     *slog.Logger
}

// Options configures epoch construction.
type Options struct {
	TMin, TMax float64
	Baseline   *Baseline
	Preload    bool

	Reject, Flat           reject.Thresholds
	RejectTmin, RejectTmax *float64
	RejectByAnnotation     bool
	Annotations            annotations.Provider

	Policy   events.DuplicatePolicy // defaults to error
	Metadata *metadata.Table        // one row per candidate event, or nil
	Decim    int                    // defaults to 1

	Resampler dsp.Resampler // defaults to dsp.CubicResampler
	Workers   int           // worker pool size, 0 = number of CPUs
}

// New constructs a Store over a continuous source. evs is the full
// candidate event list; ids maps the requested event names to codes.
// Events whose codes are not requested are dropped as IGNORED.
func New(src source.Continuous, evs []events.Event, ids events.IDMap, opts Options) (*Store, error) {
	if src == nil {
		return nil, errors.Newf("nil continuous source").
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.TMin > opts.TMax {
		return nil, errors.Newf("tmin (%g) must not exceed tmax (%g)", opts.TMin, opts.TMax).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(ids) == 0 {
		return nil, errors.Newf("empty event id map").
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.Baseline != nil && opts.Baseline.BMin > opts.Baseline.BMax {
		return nil, errors.Newf("baseline bmin (%g) must not exceed bmax (%g)", opts.Baseline.BMin, opts.Baseline.BMax).
			Category(errors.CategoryValidation).
			Build()
	}
	policy := opts.Policy
	if policy == "" {
		policy = events.DuplicateError
	}
	decim := opts.Decim
	if decim == 0 {
		decim = 1
	}
	if decim < 1 {
		return nil, errors.Newf("decim must be >= 1, got %d", decim).
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.RejectByAnnotation && opts.Annotations == nil {
		return nil, errors.Newf("reject_by_annotation requested without an annotations provider").
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.Metadata != nil && opts.Metadata.NRows() != len(evs) {
		return nil, errors.Newf("metadata has %d rows, expected one per candidate event (%d)",
			opts.Metadata.NRows(), len(evs)).
			Category(errors.CategoryMetadata).
			Build()
	}

	info := src.Info()
	clock := info.Clock()

	resolved, err := events.Dedup(evs, ids, policy)
	if err != nil {
		return nil, err
	}

	table, err := events.NewTable(resolved.Events, resolved.IDs)
	if err != nil {
		return nil, err
	}

	dropLog := NewDropLog(len(evs))
	for _, d := range resolved.Dropped {
		dropLog.Drop(d.Index, d.Reason)
	}

	usedCodes := resolved.IDs.Codes()

	s := &Store{
		id:                 uuid.New(),
		info:               info,
		rawSFreq:           info.SFreq,
		rawFirstSamp:       info.FirstSamp,
		table:              table,
		tmin:               opts.TMin,
		tmax:               opts.TMax,
		baseline:           opts.Baseline,
		dropLog:            dropLog,
		def:                &deferred{src: src, decim: 1},
		lastReject:         opts.Reject,
		lastFlat:           opts.Flat,
		rejectTmin:         opts.RejectTmin,
		rejectTmax:         opts.RejectTmax,
		rejectByAnnotation: opts.RejectByAnnotation,
		anns:               opts.Annotations,
		resampler:          opts.Resampler,
		workers:            opts.Workers,
		log:                logging.ForService("epochs"),
	}
	if s.resampler == nil {
		s.resampler = dsp.CubicResampler{}
	}

	// Mark events outside the requested id map.
	firstAvail := info.FirstSamp
	lastAvail := info.FirstSamp + src.NSamples()
	for ri, origIdx := range resolved.Kept {
		ev := resolved.Events[ri]
		if _, ok := usedCodes[ev.Code]; !ok {
			dropLog.Drop(origIdx, ReasonIgnored)
			continue
		}
		// Bounds check: a window extending past the recording cannot be
		// materialized, now or later.
		start, stop := clock.WindowAround(ev.Sample, opts.TMin, opts.TMax)
		if start < firstAvail || stop+1 > lastAvail {
			dropLog.Drop(origIdx, ReasonTooShort)
			continue
		}
		s.selection = append(s.selection, origIdx)
		s.rowEvents = append(s.rowEvents, ev)
	}

	if len(s.selection) == 0 {
		s.log.Warn("no epochs survive construction", "candidates", len(evs))
	}

	s.times = clock.TimeVector(opts.TMin, clock.WindowLength(opts.TMin, opts.TMax))

	if decim > 1 {
		if err := s.Decimate(decim, 0); err != nil {
			return nil, err
		}
	}

	if opts.Metadata != nil {
		sub, err := opts.Metadata.Select(s.selection)
		if err != nil {
			return nil, err
		}
		s.meta = sub
	}

	if opts.Preload {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SetMetrics attaches metric collectors. A nil receiver set is allowed.
func (s *Store) SetMetrics(m *obsmetrics.EpochMetrics) {
	s.metrics = m
}

// --- inspection ---

// ID returns the store UUID written into every container chunk.
func (s *Store) ID() uuid.UUID { return s.id }

// Info returns the current recording description.
func (s *Store) Info() source.Info { return s.info }

// SFreq returns the current sampling rate.
func (s *Store) SFreq() float64 { return s.info.SFreq }

// RawSFreq returns the source sampling rate before decimation/resampling.
func (s *Store) RawSFreq() float64 { return s.rawSFreq }

// NEpochs returns the number of retained rows.
func (s *Store) NEpochs() int { return len(s.selection) }

// NChannels returns the number of channels.
func (s *Store) NChannels() int { return len(s.info.Channels) }

// NTimes returns the number of samples per epoch.
func (s *Store) NTimes() int { return len(s.times) }

// Times returns a copy of the epoch time vector.
func (s *Store) Times() []float64 {
	return append([]float64(nil), s.times...)
}

// TMin returns the configured window start offset.
func (s *Store) TMin() float64 { return s.tmin }

// TMax returns the configured window end offset.
func (s *Store) TMax() float64 { return s.tmax }

// BaselineWindow returns the configured baseline window, nil when none.
// The window value survives cropping even when its samples do not.
func (s *Store) BaselineWindow() *Baseline {
	if s.baseline == nil {
		return nil
	}
	b := *s.baseline
	return &b
}

// BaselineApplied reports whether the data values are baseline-corrected.
func (s *Store) BaselineApplied() bool { return s.baselineApplied }

// BaselineCropped reports whether the baseline period was cropped away.
func (s *Store) BaselineCropped() bool { return s.baselineCropped }

// Preloaded reports whether the data is materialized.
func (s *Store) Preloaded() bool { return s.cube != nil }

// Selection returns the ordered original event indices of retained rows.
func (s *Store) Selection() []int {
	return append([]int(nil), s.selection...)
}

// GetDropLog returns a deep copy of the drop log.
func (s *Store) GetDropLog() DropLog {
	return s.dropLog.Clone()
}

// Events returns the retained row events in order.
func (s *Store) Events() []events.Event {
	return append([]events.Event(nil), s.rowEvents...)
}

// EventIDs returns the id map, including any merge-synthesized names.
func (s *Store) EventIDs() events.IDMap {
	out := make(events.IDMap, len(s.table.IDs))
	for name, code := range s.table.IDs {
		out[name] = code
	}
	return out
}

// Metadata returns the attached metadata table, nil when none.
func (s *Store) Metadata() *metadata.Table { return s.meta }

// Annotations returns the annotations provider, nil when none.
func (s *Store) Annotations() annotations.Provider { return s.anns }

// LastReject returns the most recently applied reject thresholds.
func (s *Store) LastReject() reject.Thresholds { return s.lastReject }

// LastFlat returns the most recently applied flat thresholds.
func (s *Store) LastFlat() reject.Thresholds { return s.lastFlat }

// checkConsistent validates the core invariants; it is called on entry to
// operations that consume external state (metadata mutation is the usual
// culprit).
func (s *Store) checkConsistent() error {
	// Key-based subsetting narrows the selection without touching the
	// drop log, so the selection is an ordered subsequence of the kept
	// indices, not necessarily all of them.
	prev := -1
	for i, origIdx := range s.selection {
		if origIdx <= prev {
			return errors.Newf("selection is not strictly increasing at row %d", i).
				Category(errors.CategoryState).
				Build()
		}
		if !s.dropLog.Kept(origIdx) {
			return errors.Newf("selected row %d (original event %d) is marked dropped", i, origIdx).
				Category(errors.CategoryState).
				Build()
		}
		prev = origIdx
	}
	if s.cube != nil && s.cube.ne != len(s.selection) {
		return errors.Newf("data has %d epochs but selection has %d rows", s.cube.ne, len(s.selection)).
			Category(errors.CategoryState).
			Build()
	}
	if s.meta != nil && s.meta.NRows() != len(s.selection) {
		return errors.Newf("metadata has %d rows but selection has %d; "+
			"metadata was mutated out from under the store", s.meta.NRows(), len(s.selection)).
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

// requireNonEmpty fails operations that are meaningless on empty stores.
func (s *Store) requireNonEmpty(op string) error {
	if len(s.selection) == 0 {
		return errors.Newf("cannot %s: store has no epochs", op).
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

// requirePreloaded fails operations that need materialized data.
func (s *Store) requirePreloaded(op string) error {
	if s.cube == nil {
		return errors.Newf("cannot %s: data not preloaded; call Load first", op).
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

// --- materialization ---

// allChannelIndices returns 0..n_channels-1.
func (s *Store) allChannelIndices() []int {
	idx := make([]int, len(s.info.Channels))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// rawClock is the sample clock of the underlying source grid.
func (s *Store) rawClock() sigclock.Clock {
	return sigclock.Clock{SFreq: s.rawSFreq, FirstSamp: s.rawFirstSamp}
}

// readEpoch materializes row e from the source, applying the pending
// decimation and baseline pipeline. Lazy mode only.
func (s *Store) readEpoch(e int) ([][]float64, error) {
	ev := s.rowEvents[e]
	clock := s.rawClock()
	start, stop := clock.WindowAround(ev.Sample, s.tmin, s.tmax)

	rows, err := s.def.src.Read(s.allChannelIndices(), start, stop+1)
	if err != nil {
		return nil, err
	}

	if s.def.decim > 1 {
		for i, row := range rows {
			dec, err := dsp.Decimate(row, s.def.decim, s.def.offset)
			if err != nil {
				return nil, err
			}
			rows[i] = dec
		}
	}

	if s.baseline != nil {
		if err := applyBaselineRows(rows, s.times, *s.baseline); err != nil {
			return nil, err
		}
	}

	return rows, nil
}

// Load materializes all retained epochs and applies any rejection
// configuration still pending from construction, so a loaded store holds
// exactly the epochs a Preload construction would have kept. Idempotent:
// loading a preloaded store is a no-op.
func (s *Store) Load() error {
	if err := s.materialize(); err != nil {
		return err
	}
	return s.dropBadPending()
}

// materialize copies every retained epoch into one owned contiguous
// buffer without touching the rejection state.
func (s *Store) materialize() error {
	if s.cube != nil {
		return nil
	}
	if err := s.checkConsistent(); err != nil {
		return err
	}

	c := newCube(len(s.selection), len(s.info.Channels), len(s.times))
	err := runParallel(len(s.selection), s.workers, func(e int) error {
		rows, err := s.readEpoch(e)
		if err != nil {
			return err
		}
		for ch, row := range rows {
			copy(c.row(e, ch), row)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cube = c
	s.def = nil
	s.baselineApplied = s.baseline != nil
	s.metrics.RecordMaterialized(len(s.selection))
	s.metrics.SetStoreEpochs(len(s.selection))
	s.log.Debug("epochs materialized", "n_epochs", len(s.selection), "n_channels", c.nc, "n_times", c.nt)
	return nil
}

// epochData returns per-channel rows of epoch e: buffer views when
// preloaded, freshly computed slices when lazy.
func (s *Store) epochData(e int) ([][]float64, error) {
	if s.cube != nil {
		return s.cube.epoch(e), nil
	}
	return s.readEpoch(e)
}

// absOffset returns the recording time of the anchor sample of row e in
// the annotation timebase: seconds since the first available sample.
func (s *Store) absOffset(e int) float64 {
	return s.rawClock().AbsoluteTimeAt(s.rowEvents[e].Sample)
}

// --- data access ---

// GetDataOptions selects a subset of the data.
type GetDataOptions struct {
	Picks []string                       // channel names; nil = all
	Items []int                          // epoch rows; nil = all
	TMin  *float64                       // window start; nil = full
	TMax  *float64                       // window end; nil = full
	Units map[source.ChannelType]float64 // scaling factors; nil = none
	// Copy=false returns views into the owned buffer. It is only honored
	// for preloaded stores with no subsetting; any pick/item/window/unit
	// selection forces a defensive copy.
	Copy bool
}

// GetData returns epoch data as (n_epochs, n_channels, n_times) nested
// slices.
func (s *Store) GetData(opts GetDataOptions) ([][][]float64, error) {
	if err := s.checkConsistent(); err != nil {
		return nil, err
	}
	// Deferred stores screen their rows against the remembered rejection
	// configuration on first access, like a preloaded construction would
	// have at build time. The data itself stays deferred.
	if !s.Preloaded() {
		if err := s.dropBadPending(); err != nil {
			return nil, err
		}
	}

	subsetting := opts.Picks != nil || opts.Items != nil || opts.TMin != nil || opts.TMax != nil || opts.Units != nil
	wantCopy := opts.Copy || !s.Preloaded() || subsetting

	chIdx := s.allChannelIndices()
	if opts.Picks != nil {
		var err error
		chIdx, err = s.pickIndices(opts.Picks)
		if err != nil {
			return nil, err
		}
	}

	items := opts.Items
	if items == nil {
		items = make([]int, len(s.selection))
		for i := range items {
			items[i] = i
		}
	} else {
		for _, it := range items {
			if it < 0 || it >= len(s.selection) {
				return nil, errors.Newf("epoch index %d out of range (%d epochs)", it, len(s.selection)).
					Category(errors.CategoryValidation).
					Build()
			}
		}
	}

	lo, hi := 0, len(s.times)-1
	if len(s.times) == 0 {
		hi = -1
	}
	if opts.TMin != nil {
		lo = sigclock.IndexNear(s.times, *opts.TMin)
	}
	if opts.TMax != nil {
		hi = sigclock.IndexNear(s.times, *opts.TMax)
	}
	if hi < lo {
		return nil, errors.Newf("requested data window is empty (tmin after tmax)").
			Category(errors.CategoryValidation).
			Build()
	}

	out := make([][][]float64, len(items))
	for oi, e := range items {
		rows, err := s.epochData(e)
		if err != nil {
			return nil, err
		}
		epoch := make([][]float64, len(chIdx))
		for ci, ch := range chIdx {
			row := rows[ch][lo : hi+1]
			if wantCopy {
				cp := make([]float64, len(row))
				copy(cp, row)
				row = cp
			}
			if opts.Units != nil {
				if factor, ok := opts.Units[s.info.Channels[ch].Type]; ok && factor != 1 {
					for i := range row {
						row[i] *= factor
					}
				}
			}
			epoch[ci] = row
		}
		out[oi] = epoch
	}
	return out, nil
}

// pickIndices resolves channel names to channel indices, order preserved.
func (s *Store) pickIndices(picks []string) ([]int, error) {
	byName := make(map[string]int, len(s.info.Channels))
	for i, ch := range s.info.Channels {
		byName[ch.Name] = i
	}
	idx := make([]int, 0, len(picks))
	for _, name := range picks {
		i, ok := byName[name]
		if !ok {
			return nil, errors.Newf("channel %q not found", name).
				Category(errors.CategoryNotFound).
				Build()
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// --- rejection ---

// rejectionEngine builds an engine from the remembered configuration.
func (s *Store) rejectionEngine() (*reject.Engine, error) {
	return reject.New(reject.Config{
		Reject:       s.lastReject,
		Flat:         s.lastFlat,
		RejectTmin:   s.rejectTmin,
		RejectTmax:   s.rejectTmax,
		ByAnnotation: s.rejectByAnnotation,
		Annotations:  s.anns,
	})
}

// DropBad applies rejection to every retained epoch, updating selection
// and drop log and physically removing dropped rows. Newly supplied
// thresholds merge into the remembered ones and may only tighten; a less
// strict threshold is an error. Calling with nil thresholds re-applies
// the remembered configuration. Lazy stores become preloaded.
func (s *Store) DropBad(rej, flat reject.Thresholds) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}

	if rej != nil {
		merged, err := reject.Tighten(s.lastReject, rej, false)
		if err != nil {
			return err
		}
		s.lastReject = merged
	}
	if flat != nil {
		merged, err := reject.Tighten(s.lastFlat, flat, true)
		if err != nil {
			return err
		}
		s.lastFlat = merged
	}

	engine, err := s.rejectionEngine()
	if err != nil {
		return err
	}
	if engine.IsNoop() && s.Preloaded() {
		s.badDropped = true
		return nil
	}

	if err := s.materialize(); err != nil {
		return err
	}
	return s.dropRejected(engine)
}

// dropBadPending applies the rejection configuration remembered from
// construction if it has not been applied yet. Deferred stores stay
// deferred: rows are screened straight from the source.
func (s *Store) dropBadPending() error {
	if s.badDropped {
		return nil
	}
	engine, err := s.rejectionEngine()
	if err != nil {
		return err
	}
	return s.dropRejected(engine)
}

// dropRejected evaluates the engine over every retained row and
// physically drops the failures. Rows are read through epochData, so
// materialized and deferred stores are screened the same way.
func (s *Store) dropRejected(engine *reject.Engine) error {
	if engine.IsNoop() || len(s.selection) == 0 {
		s.badDropped = true
		return nil
	}

	names := s.info.ChannelNames()
	types := make([]source.ChannelType, len(s.info.Channels))
	for i, ch := range s.info.Channels {
		types[i] = ch.Type
	}

	type verdict struct {
		good    bool
		reasons []string
	}
	verdicts := make([]verdict, len(s.selection))
	err := runParallel(len(s.selection), s.workers, func(e int) error {
		rows, err := s.epochData(e)
		if err != nil {
			return err
		}
		good, reasons, err := engine.IsGood(reject.Window{
			Names:     names,
			Types:     types,
			Data:      rows,
			Times:     s.times,
			AbsOffset: s.absOffset(e),
		})
		if err != nil {
			return err
		}
		verdicts[e] = verdict{good: good, reasons: reasons}
		return nil
	})
	if err != nil {
		return err
	}

	var keepRows []int
	for e, v := range verdicts {
		if v.good {
			keepRows = append(keepRows, e)
		} else {
			s.dropLog.Drop(s.selection[e], v.reasons...)
			for _, r := range v.reasons {
				s.metrics.RecordDropped(r)
			}
		}
	}

	if len(keepRows) < len(s.selection) {
		if err := s.keepRows(keepRows); err != nil {
			return err
		}
	}
	s.badDropped = true
	s.metrics.RecordTransform("drop")
	s.metrics.SetStoreEpochs(len(s.selection))
	if len(s.selection) == 0 {
		s.log.Warn("all epochs were dropped")
	}
	return nil
}

// DropEpochs drops the given rows with a user reason. The store must be
// preloaded or is materialized first.
func (s *Store) DropEpochs(rows []int, reason string) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if reason == "" {
		reason = ReasonUser
	}
	// Screening and materialization come first so the given rows refer
	// to the final numbering.
	if err := s.Load(); err != nil {
		return err
	}
	drop := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r < 0 || r >= len(s.selection) {
			return errors.Newf("epoch index %d out of range (%d epochs)", r, len(s.selection)).
				Category(errors.CategoryValidation).
				Build()
		}
		drop[r] = struct{}{}
	}
	if len(drop) == 0 {
		return nil
	}

	var keepRows []int
	for e := range s.selection {
		if _, dropped := drop[e]; dropped {
			s.dropLog.Drop(s.selection[e], reason)
			s.metrics.RecordDropped(reason)
		} else {
			keepRows = append(keepRows, e)
		}
	}
	if err := s.keepRows(keepRows); err != nil {
		return err
	}
	s.metrics.RecordTransform("drop")
	s.metrics.SetStoreEpochs(len(s.selection))
	return nil
}

// keepRows shrinks the store to the given rows (current row numbering).
// The data buffer is rebuilt fresh and contiguous, never aliased.
func (s *Store) keepRows(rows []int) error {
	newSelection := make([]int, len(rows))
	newEvents := make([]events.Event, len(rows))
	for i, e := range rows {
		newSelection[i] = s.selection[e]
		newEvents[i] = s.rowEvents[e]
	}
	s.selection = newSelection
	s.rowEvents = newEvents

	if s.cube != nil {
		s.cube = s.cube.keepRows(rows)
	}
	if s.meta != nil {
		sub, err := s.meta.Select(rows)
		if err != nil {
			return err
		}
		s.meta = sub
	}
	return nil
}

// --- baseline ---

// applyBaselineRows subtracts the per-channel mean over the baseline
// window from every sample.
func applyBaselineRows(rows [][]float64, times []float64, b Baseline) error {
	span, err := baselineIndices(times, b)
	if err != nil {
		return err
	}
	lo, hi := span[0], span[1]
	for _, row := range rows {
		mean := dsp.Mean(row[lo : hi+1])
		for i := range row {
			row[i] -= mean
		}
	}
	return nil
}

// ApplyBaseline sets and applies a baseline window. On a preloaded,
// already-corrected store the raw pre-baseline values are gone, so
// removing the baseline (b == nil) is a hard error; lazy stores may
// change or remove it freely since correction happens per access.
func (s *Store) ApplyBaseline(b *Baseline) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if b != nil && b.BMin > b.BMax {
		return errors.Newf("baseline bmin (%g) must not exceed bmax (%g)", b.BMin, b.BMax).
			Category(errors.CategoryValidation).
			Build()
	}

	if s.Preloaded() && s.baselineApplied && b == nil {
		return errors.Newf("baseline cannot be removed: data is preloaded and already corrected").
			Category(errors.CategoryState).
			Build()
	}

	if !s.Preloaded() {
		s.baseline = b
		return nil
	}

	if b == nil {
		s.baseline = nil
		return nil
	}

	// Validate against the current time axis before touching any data so
	// a failure leaves the store unchanged.
	if _, err := baselineIndices(s.times, *b); err != nil {
		return err
	}
	for e := 0; e < s.cube.ne; e++ {
		if err := applyBaselineRows(s.cube.epoch(e), s.times, *b); err != nil {
			return err
		}
	}
	s.baseline = b
	s.baselineApplied = true
	s.baselineCropped = false
	s.metrics.RecordTransform("baseline")
	return nil
}

// baselineIndices returns the inclusive index range of the baseline
// window on a time axis.
func baselineIndices(times []float64, b Baseline) ([2]int, error) {
	lo, hi := -1, -1
	for i, t := range times {
		if t >= b.BMin-timeTol && t <= b.BMax+timeTol {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 {
		return [2]int{}, errors.Newf("baseline window [%g, %g] contains no samples", b.BMin, b.BMax).
			Category(errors.CategoryValidation).
			Build()
	}
	return [2]int{lo, hi}, nil
}

// AnnotationsPerEpoch returns, for each retained epoch, the annotations
// overlapping its absolute time window, in onset order. Returns an
// error when no annotations provider is attached.
func (s *Store) AnnotationsPerEpoch() ([][]annotations.Annotation, error) {
	if s.anns == nil {
		return nil, errors.Newf("store has no annotations provider").
			Category(errors.CategoryState).
			Build()
	}
	if len(s.times) == 0 {
		return make([][]annotations.Annotation, len(s.selection)), nil
	}
	out := make([][]annotations.Annotation, len(s.selection))
	for e := range s.selection {
		start := s.absOffset(e) + s.times[0]
		end := s.absOffset(e) + s.times[len(s.times)-1]
		out[e] = s.anns.Overlapping(start, end)
	}
	return out, nil
}

// --- copying ---

// Copy returns an independent deep copy; for preloaded stores this is
// the only sanctioned way to obtain a second owner of the data.
func (s *Store) Copy() *Store {
	out := *s
	out.times = append([]float64(nil), s.times...)
	out.selection = append([]int(nil), s.selection...)
	out.rowEvents = append([]events.Event(nil), s.rowEvents...)
	out.dropLog = s.dropLog.Clone()
	if s.cube != nil {
		out.cube = s.cube.clone()
	}
	if s.def != nil {
		def := *s.def
		out.def = &def
	}
	if s.baseline != nil {
		b := *s.baseline
		out.baseline = &b
	}
	if s.meta != nil {
		indices := make([]int, s.meta.NRows())
		for i := range indices {
			indices[i] = i
		}
		if sub, err := s.meta.Select(indices); err == nil {
			out.meta = sub
		}
	}
	out.info.Channels = append([]source.Channel(nil), s.info.Channels...)
	return &out
}

// nearlyEqual compares floats with the shared tolerance.
func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= timeTol
}
