package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/oondels/emergency-gate-monitoring/internal/engine"
	"github.com/oondels/emergency-gate-monitoring/internal/store"
)

// ReportApplier applies one live status report to the door timeline.
type ReportApplier interface {
	Apply(ctx context.Context, doorID string, reportedOpen bool) error
}

// BatchReconciler ingests a batch of buffered offline open-events.
type BatchReconciler interface {
	Reconcile(ctx context.Context, doorID string, entries []string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	machine    ReportApplier
	reconciler BatchReconciler
	queries    *engine.Queries
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, machine ReportApplier, reconciler BatchReconciler, queries *engine.Queries, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:      s,
		machine:    machine,
		reconciler: reconciler,
		queries:    queries,
		webpush:    webpushOptions,
	}
}
