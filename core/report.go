package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ryanuber/columnize"
)

// Report summarizes a run.
type Report struct {
	RunID       string
	DryRun      bool
	Interrupted bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcomes    []*Outcome
}

// Count returns how many photos ended in state s.
func (r *Report) Count(s State) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == s {
			n++
		}
	}
	return n
}

// Failed returns the number of photos that were not archived.
func (r *Report) Failed() int {
	return r.Count(StateFailed)
}

// Table renders the per-state counts as aligned columns.
func (r *Report) Table() string {
	counts := make(map[State]int)
	for _, o := range r.Outcomes {
		counts[o.State]++
	}

	var rows []string
	for s, c := range counts {
		rows = append(rows, fmt.Sprintf("%s|%d", s, c))
	}
	sort.Strings(rows)
	rows = append([]string{"Outcome|Files"}, rows...)
	return columnize.SimpleFormat(rows)
}

// Summary is a one line description of the run.
func (r *Report) Summary() string {
	var b strings.Builder
	if r.DryRun {
		b.WriteString("[dry run] ")
	}
	fmt.Fprintf(&b, "%d files processed, %d failed in %s",
		len(r.Outcomes), r.Failed(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if r.Interrupted {
		b.WriteString(" (interrupted)")
	}
	return b.String()
}
