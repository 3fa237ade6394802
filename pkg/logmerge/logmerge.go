// Package logmerge merges independently-sourced per-node consensus event
// streams into one globally time-ordered, bounded window.
package logmerge

import (
	"slices"

	"github.com/shrtyk/ledger-coordinator/api"
)

// DefaultBound is the merged window size kept for display.
const DefaultBound = 50

// Merge flattens the given per-node streams, orders them by descending
// timestamp (most recent first) and truncates the result to bound entries.
// A bound <= 0 means unbounded.
//
// Entries are not deduplicated: nodes logging the same logical event each
// contribute their own entry, which is a property of observing a replicated
// system from the outside. The sort is stable, so entries sharing a
// timestamp keep their stream order.
func Merge(bound int, streams ...[]api.LogEntry) []api.LogEntry {
	var total int
	for _, s := range streams {
		total += len(s)
	}

	merged := make([]api.LogEntry, 0, total)
	for _, s := range streams {
		merged = append(merged, s...)
	}

	slices.SortStableFunc(merged, func(a, b api.LogEntry) int {
		return b.Timestamp.Compare(a.Timestamp.Time)
	})

	if bound > 0 && len(merged) > bound {
		merged = merged[:bound]
	}
	return merged
}
