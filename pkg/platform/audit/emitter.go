package audit

import (
	"context"
	"log/slog"
	"time"

	"titleguard/pkg/requestcontext"
)

// Emitter is the in-process producer side of the audit pipeline. Emit never
// blocks the calling request: when the inbox is full the event is dropped
// and logged.
type Emitter struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewEmitter(buffer int, logger *slog.Logger) *Emitter {
	return &Emitter{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox is the channel the audit worker consumes.
func (e *Emitter) Inbox() <-chan Event {
	return e.inbox
}

// Emit stamps the event with time and request id from the context and hands
// it to the worker.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case e.inbox <- event:
	default:
		e.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action,
			"claim_id", event.ClaimID,
		)
	}
}
