// Package notify delivers verification outcome notifications to claim
// owners. Delivery is fire and forget: the state machine never blocks or
// fails on it.
package notify

import (
	"context"
	"log/slog"

	id "titleguard/pkg/domain"
)

// Sender delivers one outcome notification.
type Sender interface {
	VerificationCompleted(ctx context.Context, ownerID id.UserID, claimID id.ClaimID, status, recommendation string)
}

// LogSender writes notifications to the log. Stands in until a real channel
// (email, SMS) is wired behind the same interface.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) VerificationCompleted(ctx context.Context, ownerID id.UserID, claimID id.ClaimID, status, recommendation string) {
	s.logger.InfoContext(ctx, "verification outcome notification",
		"owner_id", ownerID.String(),
		"claim_id", claimID.String(),
		"status", status,
		"recommendation", recommendation,
	)
}
