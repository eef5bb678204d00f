package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionEventType string

const (
	EventSessionCreated     SessionEventType = "SESSION_CREATED"
	EventPlayersAdded       SessionEventType = "PLAYERS_ADDED"
	EventParticipantUpdated SessionEventType = "PARTICIPANT_UPDATED"
	EventRoundRecorded      SessionEventType = "ROUND_RECORDED"
	EventSessionEnded       SessionEventType = "SESSION_ENDED"
	EventSessionCancelled   SessionEventType = "SESSION_CANCELLED"
)

// SessionEvent is published after a session mutation has been committed.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	SessionID  uuid.UUID        `json:"session_id"`
	Group      GroupKey         `json:"group"`
	Payload    any              `json:"payload,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
