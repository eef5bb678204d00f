package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/repositories"
	"github.com/google/uuid"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate id: %w", err)
	}
	return id, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// visibleParticipants drops soft-deleted participants.
func visibleParticipants(all []models.ParticipantView) []models.ParticipantView {
	visible := make([]models.ParticipantView, 0, len(all))
	for _, p := range all {
		if p.Status != models.ParticipantStatusDeleted {
			visible = append(visible, p)
		}
	}
	return visible
}

// uniqueIDs removes duplicates and nil ids, keeping the first occurrence order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func writeGameLog(ctx context.Context, exec repositories.SQLExecutor, repo repositories.GameLogRepository,
	group models.GroupKey, sessionID uuid.UUID, playerID *uuid.UUID, action models.GameAction, details map[string]any, at time.Time,
) error {
	id, err := newID()
	if err != nil {
		return err
	}
	entry := &models.GameLog{
		ID:        id,
		SessionID: sessionID,
		PlayerID:  playerID,
		Action:    action,
		Details:   details,
		CreatedAt: at,
		CreatedBy: group,
	}
	return repo.Create(ctx, exec, entry)
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
