// Package reject evaluates per-epoch accept/reject decisions against
// amplitude thresholds, user predicates and bad-annotation overlap.
package reject

import (
	"log/slog"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/dsp"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/sigclock"
	"github.com/neurokit/neurokit-go/internal/source"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("reject")
}

// Structural drop reasons.
const (
	ReasonNoData   = "NO_DATA"
	ReasonTooShort = "TOO_SHORT"
)

// CallableFunc is a user predicate over the (n_channels_of_type, n_times)
// slice of one epoch. The second return value must be a string or a
// []string; any other type is a validation error at the call boundary.
type CallableFunc func(data [][]float64) (bad bool, reason any)

// Criterion is one rejection criterion for a channel type: either an
// amplitude bound or a callable predicate. Dispatch is on the explicit
// variant tag, never on runtime type inspection of the criterion itself.
type Criterion struct {
	bound float64
	fn    CallableFunc
}

// Amplitude returns a peak-to-peak amplitude bound criterion.
func Amplitude(bound float64) Criterion {
	return Criterion{bound: bound}
}

// Callable returns a predicate criterion.
func Callable(fn CallableFunc) Criterion {
	return Criterion{fn: fn}
}

// IsCallable reports whether this criterion is the predicate variant.
func (c Criterion) IsCallable() bool {
	return c.fn != nil
}

// Bound returns the amplitude bound; only meaningful when !IsCallable().
func (c Criterion) Bound() float64 {
	return c.bound
}

// Thresholds maps channel types to criteria.
type Thresholds map[source.ChannelType]Criterion

// Window is the per-epoch view handed to the engine.
type Window struct {
	Names []string             // channel names, row order
	Types []source.ChannelType // channel types, row order
	Data  [][]float64          // one row per channel
	Times []float64            // relative sample times, row-aligned columns
	// AbsOffset converts relative times to absolute recording time:
	// absolute time of column i is AbsOffset + Times[i].
	AbsOffset float64
}

// Config configures an Engine.
type Config struct {
	Reject Thresholds // upper peak-to-peak bounds per channel type
	Flat   Thresholds // lower peak-to-peak bounds per channel type
	// RejectTmin/RejectTmax restrict the evaluated time window; nil means
	// the full epoch.
	RejectTmin *float64
	RejectTmax *float64
	// ByAnnotation enables bad-annotation overlap rejection.
	ByAnnotation bool
	Annotations  annotations.Provider
}

// Engine evaluates epochs against a fixed Config.
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	for chType, crit := range cfg.Reject {
		if !crit.IsCallable() && crit.bound <= 0 {
			return nil, errors.Newf("reject bound for %s must be positive, got %g", chType, crit.bound).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	for chType, crit := range cfg.Flat {
		if !crit.IsCallable() && crit.bound < 0 {
			return nil, errors.Newf("flat bound for %s must not be negative, got %g", chType, crit.bound).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	if cfg.RejectTmin != nil && cfg.RejectTmax != nil && *cfg.RejectTmin > *cfg.RejectTmax {
		return nil, errors.Newf("reject_tmin (%g) must not exceed reject_tmax (%g)", *cfg.RejectTmin, *cfg.RejectTmax).
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.ByAnnotation && cfg.Annotations == nil {
		return nil, errors.Newf("reject_by_annotation requested without an annotations provider").
			Category(errors.CategoryValidation).
			Build()
	}
	return &Engine{cfg: cfg}, nil
}

// IsNoop reports whether the engine can have no effect: no thresholds, no
// predicates, no annotation rejection. Callers should short-circuit.
func (e *Engine) IsNoop() bool {
	noop := len(e.cfg.Reject) == 0 && len(e.cfg.Flat) == 0 && !e.cfg.ByAnnotation
	if noop {
		logger.Debug("rejection is a noop")
	}
	return noop
}

// IsGood evaluates one epoch. All triggered criteria contribute their
// reasons; the decision is not short-circuited per channel type.
func (e *Engine) IsGood(w Window) (bool, []string, error) {
	if len(w.Data) == 0 {
		return false, []string{ReasonNoData}, nil
	}
	if len(w.Times) < 2 {
		return false, []string{ReasonTooShort}, nil
	}
	for _, row := range w.Data {
		if len(row) != len(w.Times) {
			return false, []string{ReasonTooShort}, nil
		}
	}

	lo, hi := e.windowIndices(w.Times)

	var reasons []string

	for _, chType := range typeOrder(w.Types) {
		if crit, ok := e.cfg.Reject[chType]; ok {
			r, err := e.applyCriterion(w, chType, crit, lo, hi, false)
			if err != nil {
				return false, nil, err
			}
			reasons = append(reasons, r...)
		}
		if crit, ok := e.cfg.Flat[chType]; ok {
			r, err := e.applyCriterion(w, chType, crit, lo, hi, true)
			if err != nil {
				return false, nil, err
			}
			reasons = append(reasons, r...)
		}
	}

	if e.cfg.ByAnnotation {
		start := w.AbsOffset + w.Times[lo]
		stop := w.AbsOffset + w.Times[hi]
		if desc, found := e.cfg.Annotations.FirstBadOverlap(start, stop); found {
			reasons = append(reasons, desc)
		}
	}

	return len(reasons) == 0, reasons, nil
}

// windowIndices maps the configured reject window onto inclusive sample
// indices of the epoch time vector.
func (e *Engine) windowIndices(times []float64) (lo, hi int) {
	lo, hi = 0, len(times)-1
	if e.cfg.RejectTmin != nil {
		lo = sigclock.IndexNear(times, *e.cfg.RejectTmin)
	}
	if e.cfg.RejectTmax != nil {
		hi = sigclock.IndexNear(times, *e.cfg.RejectTmax)
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

// applyCriterion evaluates one criterion for one channel type, returning
// the reasons it contributes.
func (e *Engine) applyCriterion(w Window, chType source.ChannelType, crit Criterion, lo, hi int, flat bool) ([]string, error) {
	var rows [][]float64
	var names []string
	for i, t := range w.Types {
		if t == chType {
			rows = append(rows, w.Data[i])
			names = append(names, w.Names[i])
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if crit.IsCallable() {
		sub := make([][]float64, len(rows))
		for i, row := range rows {
			sub[i] = row[lo : hi+1]
		}
		bad, raw := crit.fn(sub)
		if !bad {
			return nil, nil
		}
		reasons, err := validateCallableReason(raw)
		if err != nil {
			return nil, err
		}
		return reasons, nil
	}

	// Amplitude variant: record the channel with the worst violation.
	worst := ""
	worstPTP := 0.0
	triggered := false
	for i, row := range rows {
		ptp := dsp.PeakToPeak(row[lo : hi+1])
		if flat {
			if ptp < crit.bound && (!triggered || ptp < worstPTP) {
				worst, worstPTP, triggered = names[i], ptp, true
			}
		} else {
			if ptp > crit.bound && (!triggered || ptp > worstPTP) {
				worst, worstPTP, triggered = names[i], ptp, true
			}
		}
	}
	if !triggered {
		return nil, nil
	}
	return []string{worst}, nil
}

// validateCallableReason enforces the predicate return contract at the
// boundary: a string or a slice of strings.
func validateCallableReason(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		if len(v) == 0 {
			return nil, callableReasonError(raw)
		}
		return v, nil
	default:
		return nil, callableReasonError(raw)
	}
}

func callableReasonError(raw any) error {
	return errors.Newf("callable rejection reason must be a string or []string, got %T", raw).
		Category(errors.CategoryValidation).
		Build()
}

// typeOrder returns the distinct channel types in first-appearance order,
// so reason accumulation is deterministic.
func typeOrder(types []source.ChannelType) []source.ChannelType {
	seen := make(map[source.ChannelType]struct{}, len(types))
	var out []source.ChannelType
	for _, t := range types {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
