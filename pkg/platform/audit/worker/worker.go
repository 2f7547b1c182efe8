// Package worker consumes audit events from a channel and fans them out to a
// store and an optional external publisher. Audit delivery is best-effort:
// failures are logged, never surfaced to the emitting request.
package worker

import (
	"context"
	"log/slog"

	"titleguard/pkg/platform/audit"
)

type Worker struct {
	store     audit.Store
	publisher audit.Publisher
	inbox     <-chan audit.Event
	logger    *slog.Logger
}

func New(store audit.Store, publisher audit.Publisher, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, publisher: publisher, inbox: inbox, logger: logger}
}

// Run processes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event audit.Event) {
	if w.store != nil {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action,
				"claim_id", event.ClaimID,
				"error", err,
			)
		}
	}
	if w.publisher != nil {
		if err := w.publisher.Emit(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "audit publish failed",
				"action", event.Action,
				"claim_id", event.ClaimID,
				"error", err,
			)
		}
	}
}
