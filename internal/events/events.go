// Package events defines the event table of a continuous recording: an
// ordered list of (sample, prior code, code) markers plus a name→code
// mapping with hierarchical "/" tag semantics.
package events

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/logging"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("events")
}

// Event is a single marker in the continuous source.
type Event struct {
	Sample int64 // absolute sample index of the marker
	Prior  int32 // value of the trigger channel before the marker
	Code   int32 // event code
}

// IDMap maps event names to codes. Names may carry "/"-separated tags,
// e.g. "auditory/left".
type IDMap map[string]int32

// Codes returns the set of codes present in the map.
func (m IDMap) Codes() map[int32]struct{} {
	codes := make(map[int32]struct{}, len(m))
	for _, code := range m {
		codes[code] = struct{}{}
	}
	return codes
}

// NameOf returns the name mapped to code, or the decimal representation
// of the code when no name is mapped.
func (m IDMap) NameOf(code int32) string {
	for name, c := range m {
		if c == code {
			return name
		}
	}
	return strconv.FormatInt(int64(code), 10)
}

// tagSet decomposes a "/"-delimited name into its unordered tag set.
func tagSet(name string) map[string]struct{} {
	parts := strings.Split(name, "/")
	set := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		set[p] = struct{}{}
	}
	return set
}

// Table is an ordered event list together with its id map. Tag sets are
// precomputed at construction so hierarchical queries are membership
// tests, not string parsing at every access.
type Table struct {
	Events []Event
	IDs    IDMap

	tags map[string]map[string]struct{} // name → tag set
}

// NewTable builds a Table, precomputing tag sets. Events that are not in
// chronological order are accepted but logged as a warning.
func NewTable(evs []Event, ids IDMap) (*Table, error) {
	if ids == nil {
		ids = IDMap{}
	}
	for name, code := range ids {
		if name == "" {
			return nil, errors.Newf("event id map contains an empty name for code %d", code).
				Category(errors.CategoryValidation).
				Build()
		}
	}

	for i := 1; i < len(evs); i++ {
		if evs[i].Sample < evs[i-1].Sample {
			logger.Warn("events are not in chronological order",
				"index", i, "sample", evs[i].Sample, "previous", evs[i-1].Sample)
			break
		}
	}

	tags := make(map[string]map[string]struct{}, len(ids))
	for name := range ids {
		tags[name] = tagSet(name)
	}

	return &Table{Events: evs, IDs: ids, tags: tags}, nil
}

// MatchNames resolves a selection key to the event names it matches.
// A key is either an exact name, a decimal code string, or a "/"-delimited
// tag query: "a/b" matches every name whose tag set contains both "a" and
// "b", regardless of order ("b/a" is the same query).
func (t *Table) MatchNames(key string) []string {
	// Exact name match wins; it also covers names that merely look
	// hierarchical.
	if _, ok := t.IDs[key]; ok {
		return []string{key}
	}

	// Numeric-code string.
	if code, err := strconv.ParseInt(key, 10, 32); err == nil {
		for name, c := range t.IDs {
			if c == int32(code) {
				return []string{name}
			}
		}
		return nil
	}

	want := tagSet(key)
	var matched []string
	for name, set := range t.tags {
		all := true
		for tag := range want {
			if _, ok := set[tag]; !ok {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched
}

// MatchCodes resolves one or more selection keys to the union of matched
// event codes. An unmatched key is a not-found error naming the key.
func (t *Table) MatchCodes(keys ...string) (map[int32]struct{}, error) {
	codes := make(map[int32]struct{})
	for _, key := range keys {
		names := t.MatchNames(key)
		if len(names) == 0 {
			return nil, errors.Newf("event name %q not found in id map", key).
				Category(errors.CategoryNotFound).
				Context("key", key).
				Build()
		}
		for _, name := range names {
			codes[t.IDs[name]] = struct{}{}
		}
	}
	return codes, nil
}
