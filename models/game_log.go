package models

import (
	"time"

	"github.com/google/uuid"
)

type GameAction string

const (
	ActionSessionCreated           GameAction = "session_created"
	ActionPlayersAdded             GameAction = "players_added"
	ActionParticipantStatusChanged GameAction = "participant_status_changed"
	ActionRoundWon                 GameAction = "round_won"
	ActionSessionEnded             GameAction = "session_ended"
	ActionSessionCancelled         GameAction = "session_cancelled"
)

// GameLog is an entry of a session's action log.
type GameLog struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	SessionID uuid.UUID      `json:"session_id" db:"session_id"`
	PlayerID  *uuid.UUID     `json:"player_id,omitempty" db:"player_id"`
	Action    GameAction     `json:"action" db:"action"`
	Details   map[string]any `json:"details,omitempty" db:"details"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	CreatedBy GroupKey       `json:"created_by" db:"created_by"`
}
