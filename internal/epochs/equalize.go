package epochs

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// EqualizeMethod selects which epochs are dropped when equalizing counts.
type EqualizeMethod string

const (
	// EqualizeMinTime keeps the epochs whose event times best match the
	// smallest group, so the compared conditions stay interleaved in time.
	EqualizeMinTime EqualizeMethod = "mintime"
	// EqualizeTruncate keeps the first n epochs of each group.
	EqualizeTruncate EqualizeMethod = "truncate"
	// EqualizeRandom keeps a random subset of each group.
	EqualizeRandom EqualizeMethod = "random"
)

// EqualizeCounts drops epochs in place until every key group holds the
// same number. Each key resolves like Get does; the groups must not
// share any event type, since an epoch belonging to two groups makes
// the counts ill-defined. Dropped rows are logged as EQUALIZED_COUNT.
func (s *Store) EqualizeCounts(keys []string, method EqualizeMethod) error {
	if err := s.checkConsistent(); err != nil {
		return err
	}
	if len(keys) < 2 {
		return errors.Newf("equalizing needs at least two keys, got %d", len(keys)).
			Category(errors.CategoryValidation).
			Build()
	}
	if method == "" {
		method = EqualizeMinTime
	}
	switch method {
	case EqualizeMinTime, EqualizeTruncate, EqualizeRandom:
	default:
		return errors.Newf("invalid equalize method %q, must be mintime, truncate or random", method).
			Category(errors.CategoryValidation).
			Build()
	}

	// Hierarchical and flat keys cannot be compared: a "/" key selects
	// by tag subset while a flat key selects one type, and the count
	// semantics differ.
	hierarchical := strings.Contains(keys[0], "/")
	for _, key := range keys[1:] {
		if strings.Contains(key, "/") != hierarchical {
			return errors.Newf("cannot mix hierarchical and flat keys: %q vs %q", keys[0], key).
				Category(errors.CategoryValidation).
				Build()
		}
	}

	// Resolve every key and refuse overlapping groups.
	groups := make([][]int, len(keys))
	owner := make(map[int32]string)
	for ki, key := range keys {
		codes, err := s.table.MatchCodes(key)
		if err != nil {
			return err
		}
		for code := range codes {
			if prev, clash := owner[code]; clash {
				return errors.Newf("keys %q and %q both match event type %q",
					prev, key, s.table.IDs.NameOf(code)).
					Category(errors.CategoryConflict).
					Build()
			}
			owner[code] = key
		}
		for e, ev := range s.rowEvents {
			if _, ok := codes[ev.Code]; ok {
				groups[ki] = append(groups[ki], e)
			}
		}
		if len(groups[ki]) == 0 {
			return errors.Newf("key %q matches no epochs", key).
				Category(errors.CategoryNotFound).
				Build()
		}
	}

	target := len(groups[0])
	smallest := 0
	for ki, g := range groups[1:] {
		if len(g) < target {
			target = len(g)
			smallest = ki + 1
		}
	}

	var drops []int
	for _, g := range groups {
		if len(g) == target {
			continue
		}
		switch method {
		case EqualizeTruncate:
			drops = append(drops, g[target:]...)
		case EqualizeRandom:
			perm := rand.Perm(len(g))
			for _, p := range perm[target:] {
				drops = append(drops, g[p])
			}
		case EqualizeMinTime:
			drops = append(drops, s.minTimeDrops(g, groups[smallest])...)
		}
	}
	sort.Ints(drops)

	if err := s.DropEpochs(drops, ReasonEqualizedCount); err != nil {
		return err
	}
	s.log.Debug("event counts equalized",
		"keys", keys, "method", string(method), "kept_per_key", target, "dropped", len(drops))
	return nil
}

// minTimeDrops picks which rows of group to drop so the kept rows'
// event times track the reference group. For each reference event the
// nearest unclaimed row survives; nearest ties go to the lower row
// index so the outcome is deterministic.
func (s *Store) minTimeDrops(group, ref []int) []int {
	keep := make(map[int]struct{}, len(ref))
	claimed := make([]bool, len(group))
	for _, r := range ref {
		refSample := s.rowEvents[r].Sample
		best, bestDist := -1, int64(math.MaxInt64)
		for gi, e := range group {
			if claimed[gi] {
				continue
			}
			d := s.rowEvents[e].Sample - refSample
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				best, bestDist = gi, d
			}
		}
		if best < 0 {
			break
		}
		claimed[best] = true
		keep[group[best]] = struct{}{}
	}

	var drops []int
	for _, e := range group {
		if _, ok := keep[e]; !ok {
			drops = append(drops, e)
		}
	}
	return drops
}
