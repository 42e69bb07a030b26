package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/oondels/emergency-gate-monitoring/internal/parse"
	"github.com/oondels/emergency-gate-monitoring/internal/store"
)

// Reconciler ingests batches of open-events a controller buffered while it
// was offline. Batch entries bypass live-edge detection entirely: they are
// historical, so no broadcast and no alert is produced for them.
type Reconciler struct {
	store store.Store
	loc   *time.Location
}

// NewReconciler creates a reconciler that interprets controller timestamps
// in the given zone.
func NewReconciler(s store.Store, loc *time.Location) *Reconciler {
	return &Reconciler{store: s, loc: loc}
}

// Reconcile parses each entry as a controller civil timestamp and appends
// one open-record per entry in a single transaction. Entry order is taken
// as chronological order; entries whose parsed time does not advance past
// the previous one are nudged forward so that no two records in a batch
// share a timestamp. The batch either commits completely or not at all.
// Resubmitting a committed batch duplicates history; deduplication is the
// caller's responsibility.
func (r *Reconciler) Reconcile(ctx context.Context, doorID string, entries []string) error {
	if len(entries) == 0 {
		return nil
	}

	times := make([]time.Time, 0, len(entries))
	var prev time.Time
	for i, entry := range entries {
		t, err := parse.LocalTimestamp(entry, r.loc)
		if err != nil {
			return fmt.Errorf("offline batch entry %d: %w", i, err)
		}
		if i > 0 && !t.After(prev) {
			t = prev.Add(time.Millisecond)
		}
		prev = t
		times = append(times, t)
	}

	if err := r.store.AppendOpenings(ctx, doorID, times); err != nil {
		return fmt.Errorf("reconcile %d openings for door %s: %w", len(times), doorID, err)
	}
	return nil
}
