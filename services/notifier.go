package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
)

// Notifier receives session events once the mutation producing them has been committed.
type Notifier interface {
	Notify(ctx context.Context, event models.SessionEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.SessionEvent) error { return nil }

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func publish(ctx context.Context, n Notifier, logger *slog.Logger, eventType models.SessionEventType, group models.GroupKey, sessionID uuid.UUID, payload any, at time.Time) {
	event := models.SessionEvent{
		Type:       eventType,
		SessionID:  sessionID,
		Group:      group,
		Payload:    payload,
		OccurredAt: at,
	}
	if err := n.Notify(ctx, event); err != nil {
		logger.Warn("failed to publish session event",
			slog.String("type", string(eventType)),
			slog.String("session_id", sessionID.String()),
			slog.Any("error", err))
	}
}
