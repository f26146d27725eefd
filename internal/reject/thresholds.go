package reject

import (
	"github.com/neurokit/neurokit-go/internal/errors"
)

// Tighten merges newly supplied thresholds into previously applied ones,
// enforcing the monotonicity rule: across repeated applications on the
// same store, reject bounds may only decrease and flat bounds may only
// increase. A less strict value is an error, not a silent no-op.
//
// Callable criteria cannot be ordered; re-supplying a callable for a key
// replaces the previous callable, but switching a key between the
// amplitude and callable variants is an error.
func Tighten(prev, next Thresholds, flat bool) (Thresholds, error) {
	merged := make(Thresholds, len(prev)+len(next))
	for k, v := range prev {
		merged[k] = v
	}

	kind := "reject"
	if flat {
		kind = "flat"
	}

	for k, nv := range next {
		pv, existed := merged[k]
		if !existed {
			merged[k] = nv
			continue
		}
		switch {
		case pv.IsCallable() != nv.IsCallable():
			return nil, errors.Newf("%s criterion for %s cannot switch between amplitude and callable variants", kind, k).
				Category(errors.CategoryValidation).
				Build()
		case pv.IsCallable():
			merged[k] = nv
		case !flat && nv.bound > pv.bound:
			return nil, errors.Newf("new reject bound for %s (%g) is less strict than previously applied (%g)", k, nv.bound, pv.bound).
				Category(errors.CategoryRejection).
				Build()
		case flat && nv.bound < pv.bound:
			return nil, errors.Newf("new flat bound for %s (%g) is less strict than previously applied (%g)", k, nv.bound, pv.bound).
				Category(errors.CategoryRejection).
				Build()
		default:
			merged[k] = nv
		}
	}
	return merged, nil
}
