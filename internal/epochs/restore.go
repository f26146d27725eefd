package epochs

import (
	"github.com/google/uuid"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/dsp"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/metadata"
	"github.com/neurokit/neurokit-go/internal/source"
)

// DataConfig assembles a preloaded store from already-materialized data.
// This is the path container deserialization takes; it is also handy for
// synthesizing stores in tests and pipelines that compute epochs
// themselves.
type DataConfig struct {
	Info source.Info
	// RawSFreq is the source rate before any decimation or resampling;
	// zero means Info.SFreq.
	RawSFreq float64

	// Data is (n_epochs, n_channels, n_times); it is copied.
	Data [][][]float64

	Events []events.Event // one per epoch
	IDs    events.IDMap

	TMin            float64
	Baseline        *Baseline
	BaselineApplied bool
	BaselineCropped bool

	// Selection holds the original candidate-event index of each row;
	// nil means 0..n_epochs-1. DropLog is the full per-candidate log;
	// nil means every candidate was kept.
	Selection []int
	DropLog   DropLog

	Metadata    *metadata.Table
	Annotations annotations.Provider

	// ID preserves the identity of a deserialized store; the zero UUID
	// mints a fresh one.
	ID uuid.UUID

	Workers int
}

// NewFromData builds a preloaded store from cfg.
func NewFromData(cfg DataConfig) (*Store, error) {
	ne := len(cfg.Data)
	if len(cfg.Events) != ne {
		return nil, errors.Newf("%d events for %d epochs", len(cfg.Events), ne).
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.Info.SFreq <= 0 {
		return nil, errors.Newf("sampling rate must be positive, got %g Hz", cfg.Info.SFreq).
			Category(errors.CategoryValidation).
			Build()
	}
	nc := len(cfg.Info.Channels)
	nt := 0
	if ne > 0 {
		if len(cfg.Data[0]) != nc {
			return nil, errors.Newf("epoch 0 has %d channels, info describes %d", len(cfg.Data[0]), nc).
				Category(errors.CategoryValidation).
				Build()
		}
		if nc > 0 {
			nt = len(cfg.Data[0][0])
		}
	}
	for e, epoch := range cfg.Data {
		if len(epoch) != nc {
			return nil, errors.Newf("epoch %d has %d channels, expected %d", e, len(epoch), nc).
				Category(errors.CategoryValidation).
				Build()
		}
		for ch, row := range epoch {
			if len(row) != nt {
				return nil, errors.Newf("epoch %d channel %d has %d samples, expected %d", e, ch, len(row), nt).
					Category(errors.CategoryValidation).
					Build()
			}
		}
	}

	selection := cfg.Selection
	if selection == nil {
		selection = make([]int, ne)
		for i := range selection {
			selection[i] = i
		}
	} else if len(selection) != ne {
		return nil, errors.Newf("selection has %d entries for %d epochs", len(selection), ne).
			Category(errors.CategoryValidation).
			Build()
	} else {
		selection = append([]int(nil), selection...)
	}

	dropLog := cfg.DropLog
	if dropLog == nil {
		dropLog = NewDropLog(ne)
	} else {
		dropLog = dropLog.Clone()
	}
	for _, origIdx := range selection {
		if origIdx < 0 || origIdx >= len(dropLog) {
			return nil, errors.Newf("selection entry %d outside drop log of %d candidates", origIdx, len(dropLog)).
				Category(errors.CategoryValidation).
				Build()
		}
	}

	if cfg.Metadata != nil && cfg.Metadata.NRows() != ne {
		return nil, errors.Newf("metadata has %d rows for %d epochs", cfg.Metadata.NRows(), ne).
			Category(errors.CategoryMetadata).
			Build()
	}

	table, err := events.NewTable(cfg.Events, cfg.IDs)
	if err != nil {
		return nil, err
	}

	rawSFreq := cfg.RawSFreq
	if rawSFreq == 0 {
		rawSFreq = cfg.Info.SFreq
	}

	c := newCube(ne, nc, nt)
	for e, epoch := range cfg.Data {
		for ch, row := range epoch {
			copy(c.row(e, ch), row)
		}
	}

	times := make([]float64, nt)
	for i := range times {
		times[i] = cfg.TMin + float64(i)/cfg.Info.SFreq
	}
	tmax := cfg.TMin
	if nt > 0 {
		tmax = times[nt-1]
	}

	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	s := &Store{
		id:              id,
		info:            cfg.Info,
		rawSFreq:        rawSFreq,
		rawFirstSamp:    cfg.Info.FirstSamp,
		table:           table,
		rowEvents:       append([]events.Event(nil), cfg.Events...),
		tmin:            cfg.TMin,
		tmax:            tmax,
		times:           times,
		baselineApplied: cfg.BaselineApplied,
		baselineCropped: cfg.BaselineCropped,
		selection:       selection,
		dropLog:         dropLog,
		cube:            c,
		badDropped:      true,
		resampler:       dsp.CubicResampler{},
		workers:         cfg.Workers,
		meta:            cfg.Metadata,
		anns:            cfg.Annotations,
		log:             logging.ForService("epochs"),
	}
	if cfg.Baseline != nil {
		b := *cfg.Baseline
		s.baseline = &b
	}
	s.info.Channels = append([]source.Channel(nil), cfg.Info.Channels...)

	if err := s.checkConsistent(); err != nil {
		return nil, err
	}
	return s, nil
}
