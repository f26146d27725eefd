package epochs

import (
	"fmt"
	"sort"
	"strings"
)

// Drop-log reasons produced by the store itself. Deduplication reasons
// come from the events package, amplitude reasons are channel names, and
// annotation reasons are annotation descriptions.
const (
	ReasonIgnored        = "IGNORED"
	ReasonTooShort       = "TOO_SHORT"
	ReasonNoData         = "NO_DATA"
	ReasonEqualizedCount = "EQUALIZED_COUNT"
	ReasonUser           = "USER"
)

// DropLog records, for every original candidate event, why it was
// excluded. An empty entry means the event is retained. Entries only ever
// move from kept to dropped.
type DropLog [][]string

// NewDropLog returns an all-kept log for n original events.
func NewDropLog(n int) DropLog {
	return make(DropLog, n)
}

// Kept reports whether original event i is still retained.
func (d DropLog) Kept(i int) bool {
	return len(d[i]) == 0
}

// Drop marks original event i dropped for the given reasons. Dropping an
// already-dropped entry appends new reasons without duplicates.
func (d DropLog) Drop(i int, reasons ...string) {
	for _, r := range reasons {
		exists := false
		for _, have := range d[i] {
			if have == r {
				exists = true
				break
			}
		}
		if !exists {
			d[i] = append(d[i], r)
		}
	}
}

// KeptIndices returns the ordered original indices still retained.
func (d DropLog) KeptIndices() []int {
	var out []int
	for i := range d {
		if d.Kept(i) {
			out = append(out, i)
		}
	}
	return out
}

// Clone returns an independent deep copy.
func (d DropLog) Clone() DropLog {
	out := make(DropLog, len(d))
	for i, entry := range d {
		out[i] = append([]string(nil), entry...)
	}
	return out
}

// Stats summarizes the drop log.
type Stats struct {
	Total        int            // original candidate events
	Kept         int            // retained rows
	Dropped      int            // dropped rows, counting IGNORED
	DropFraction float64        // dropped/(total-ignored), ignoring never-requested events
	ByReason     map[string]int // reason → occurrence count
}

// Statistics computes drop accounting. Events dropped as IGNORED were
// never candidates for the requested ids, so the drop fraction excludes
// them from its denominator.
func (d DropLog) Statistics() Stats {
	st := Stats{Total: len(d), ByReason: make(map[string]int)}
	ignored := 0
	for i := range d {
		if d.Kept(i) {
			st.Kept++
			continue
		}
		st.Dropped++
		for _, reason := range d[i] {
			st.ByReason[reason]++
		}
		if len(d[i]) == 1 && d[i][0] == ReasonIgnored {
			ignored++
		}
	}
	if denom := st.Total - ignored; denom > 0 {
		st.DropFraction = float64(st.Dropped-ignored) / float64(denom)
	}
	return st
}

// String renders a human-readable summary, most frequent reasons first.
func (st Stats) String() string {
	reasons := make([]string, 0, len(st.ByReason))
	for r := range st.ByReason {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if st.ByReason[reasons[i]] != st.ByReason[reasons[j]] {
			return st.ByReason[reasons[i]] > st.ByReason[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d epochs kept (%.1f%% dropped)", st.Kept, st.Total, st.DropFraction*100)
	for _, r := range reasons {
		fmt.Fprintf(&b, "\n  %s: %d", r, st.ByReason[r])
	}
	return b.String()
}
