package events

import (
	"sort"
	"strings"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// DuplicatePolicy selects how events sharing a sample index are resolved.
type DuplicatePolicy string

const (
	// DuplicateError refuses tables with duplicates among used ids.
	DuplicateError DuplicatePolicy = "error"
	// DuplicateDrop keeps the first event at each clashing sample.
	DuplicateDrop DuplicatePolicy = "drop"
	// DuplicateMerge synthesizes a composite event for each clashing sample.
	DuplicateMerge DuplicatePolicy = "merge"
)

// Drop-log reasons produced by deduplication.
const (
	ReasonDropDuplicate  = "DROP DUPLICATE"
	ReasonMergeDuplicate = "MERGE DUPLICATE"
)

// Dropped records an original event index excluded during deduplication.
type Dropped struct {
	Index  int
	Reason string
}

// Resolved is the outcome of duplicate resolution.
type Resolved struct {
	Events  []Event   // surviving events, original order
	Kept    []int     // original indices of surviving events
	IDs     IDMap     // id map, possibly extended with merged names
	Dropped []Dropped // excluded original indices with reasons
}

// Dedup resolves events sharing a sample index according to policy.
//
// Only duplicates among used ids (codes present in the id map) count: when
// clashes involve exclusively unused codes the input passes through
// unchanged with no log entries. For DuplicateMerge the composite event
// keeps the first clashing row's position, its code is the smallest
// positive integer not present among existing codes or the id map, its
// prior is preserved when homogeneous across the group and zero otherwise,
// and its name is the "/"-joined sorted set of the originating short names.
func Dedup(evs []Event, ids IDMap, policy DuplicatePolicy) (*Resolved, error) {
	switch policy {
	case DuplicateError, DuplicateDrop, DuplicateMerge:
	default:
		return nil, errors.Newf("invalid duplicate policy %q, must be error, drop or merge", policy).
			Category(errors.CategoryValidation).
			Build()
	}

	used := ids.Codes()

	// Group indices by sample, keeping first-seen order of samples.
	bySample := make(map[int64][]int, len(evs))
	var order []int64
	for i, ev := range evs {
		if _, seen := bySample[ev.Sample]; !seen {
			order = append(order, ev.Sample)
		}
		bySample[ev.Sample] = append(bySample[ev.Sample], i)
	}

	// A sample clashes only if more than one of its events uses a
	// requested id.
	clashes := false
	for _, idxs := range bySample {
		usedCount := 0
		for _, i := range idxs {
			if _, ok := used[evs[i].Code]; ok {
				usedCount++
			}
		}
		if usedCount > 1 {
			clashes = true
			break
		}
	}
	if !clashes {
		kept := make([]int, len(evs))
		for i := range evs {
			kept[i] = i
		}
		return &Resolved{Events: evs, Kept: kept, IDs: ids}, nil
	}

	if policy == DuplicateError {
		return nil, errors.Newf("multiple events at the same sample among requested ids; " +
			"consider the drop or merge duplicate policy").
			Category(errors.CategoryEvents).
			Build()
	}

	res := &Resolved{IDs: ids}
	if policy == DuplicateMerge {
		// Work on a copy so the caller's id map is not mutated.
		res.IDs = make(IDMap, len(ids)+1)
		for name, code := range ids {
			res.IDs[name] = code
		}
	}

	for _, sample := range order {
		idxs := bySample[sample]
		var usedIdxs []int
		for _, i := range idxs {
			if _, ok := used[evs[i].Code]; ok {
				usedIdxs = append(usedIdxs, i)
			}
		}

		if len(usedIdxs) <= 1 {
			for _, i := range idxs {
				res.Events = append(res.Events, evs[i])
				res.Kept = append(res.Kept, i)
			}
			continue
		}

		switch policy {
		case DuplicateDrop:
			res.Events = append(res.Events, evs[usedIdxs[0]])
			res.Kept = append(res.Kept, usedIdxs[0])
			for _, i := range usedIdxs[1:] {
				res.Dropped = append(res.Dropped, Dropped{Index: i, Reason: ReasonDropDuplicate})
			}
		case DuplicateMerge:
			merged, err := mergeGroup(evs, usedIdxs, res.IDs)
			if err != nil {
				return nil, err
			}
			res.Events = append(res.Events, merged)
			res.Kept = append(res.Kept, usedIdxs[0])
			for _, i := range usedIdxs[1:] {
				res.Dropped = append(res.Dropped, Dropped{Index: i, Reason: ReasonMergeDuplicate})
			}
		}

		// Unused-code events at the same sample pass through untouched.
		for _, i := range idxs {
			if _, ok := used[evs[i].Code]; !ok {
				res.Events = append(res.Events, evs[i])
				res.Kept = append(res.Kept, i)
			}
		}
	}

	sortByKept(res)
	return res, nil
}

// mergeGroup synthesizes the composite event for one clashing sample and
// registers its name in ids.
func mergeGroup(evs []Event, idxs []int, ids IDMap) (Event, error) {
	first := evs[idxs[0]]

	prior := first.Prior
	homogeneous := true
	for _, i := range idxs[1:] {
		if evs[i].Prior != prior {
			homogeneous = false
			break
		}
	}
	if !homogeneous {
		prior = 0
	}

	// Collect the short names of the originating codes, sorted and
	// deduplicated, then joined by "/".
	nameSet := make(map[string]struct{}, len(idxs))
	for _, i := range idxs {
		for _, part := range strings.Split(ids.NameOf(evs[i].Code), "/") {
			nameSet[part] = struct{}{}
		}
	}
	parts := make([]string, 0, len(nameSet))
	for part := range nameSet {
		parts = append(parts, part)
	}
	sort.Strings(parts)
	name := strings.Join(parts, "/")

	code := unusedCode(evs, ids)
	if existing, ok := ids[name]; ok && existing != code {
		return Event{}, errors.Newf("merged event name %q already maps to code %d", name, existing).
			Category(errors.CategoryConflict).
			Build()
	}
	ids[name] = code

	return Event{Sample: first.Sample, Prior: prior, Code: code}, nil
}

// unusedCode returns the smallest positive integer code not present among
// the existing events or the id map. Deterministic and collision-free even
// for sparse user code spaces.
func unusedCode(evs []Event, ids IDMap) int32 {
	taken := ids.Codes()
	for _, ev := range evs {
		taken[ev.Code] = struct{}{}
	}
	code := int32(1)
	for {
		if _, ok := taken[code]; !ok {
			return code
		}
		code++
	}
}

// sortByKept restores original event order after per-sample grouping.
func sortByKept(res *Resolved) {
	type pair struct {
		ev   Event
		kept int
	}
	pairs := make([]pair, len(res.Events))
	for i := range res.Events {
		pairs[i] = pair{res.Events[i], res.Kept[i]}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].kept < pairs[b].kept })
	for i := range pairs {
		res.Events[i] = pairs[i].ev
		res.Kept[i] = pairs[i].kept
	}
	sort.Slice(res.Dropped, func(a, b int) bool { return res.Dropped[a].Index < res.Dropped[b].Index })
}
