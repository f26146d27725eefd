package epochs

import (
	"fmt"
	"sort"
	"strings"
)

// Describe renders a human-readable summary of the store, used by the
// CLI inspect command.
func (s *Store) Describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "epochs: %d x %d channels x %d samples @ %g Hz\n",
		s.NEpochs(), s.NChannels(), s.NTimes(), s.info.SFreq)
	fmt.Fprintf(&b, "window: [%g, %g] s\n", s.tmin, s.tmax)

	switch {
	case s.baseline == nil:
		b.WriteString("baseline: none\n")
	case s.baselineCropped:
		fmt.Fprintf(&b, "baseline: [%g, %g] s (cropped out)\n", s.baseline.BMin, s.baseline.BMax)
	case s.baselineApplied:
		fmt.Fprintf(&b, "baseline: [%g, %g] s (applied)\n", s.baseline.BMin, s.baseline.BMax)
	default:
		fmt.Fprintf(&b, "baseline: [%g, %g] s (pending)\n", s.baseline.BMin, s.baseline.BMax)
	}

	counts := make(map[int32]int, len(s.table.IDs))
	for _, ev := range s.rowEvents {
		counts[ev.Code]++
	}
	names := make([]string, 0, len(s.table.IDs))
	for name := range s.table.IDs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		code := s.table.IDs[name]
		fmt.Fprintf(&b, "event %q (code %d): %d epochs\n", name, code, counts[code])
	}

	b.WriteString(s.dropLog.Statistics().String())
	b.WriteString("\n")

	if s.meta != nil {
		b.WriteString(s.meta.String())
		b.WriteString("\n")
	}
	return b.String()
}
