package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus mirrors the status column of the game_participants table.
type ParticipantStatus string

const (
	ParticipantStatusActive   ParticipantStatus = "active"
	ParticipantStatusDisabled ParticipantStatus = "disabled"
	// ParticipantStatusDeleted soft-removes a participant from the session.
	ParticipantStatusDeleted ParticipantStatus = "deleted"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantStatusActive, ParticipantStatusDisabled, ParticipantStatusDeleted:
		return true
	}
	return false
}

// GameParticipant is a player's membership and running score in a session.
type GameParticipant struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	SessionID uuid.UUID         `json:"session_id" db:"session_id"`
	PlayerID  uuid.UUID         `json:"player_id" db:"player_id"`
	Score     int               `json:"score" db:"score"`
	TotalWin  int               `json:"total_win" db:"total_win"`
	Status    ParticipantStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// ParticipantView is a participant joined with its player's name and avatar.
type ParticipantView struct {
	ParticipantID uuid.UUID         `json:"participant_id"`
	PlayerID      uuid.UUID         `json:"player_id"`
	Name          string            `json:"name"`
	Avatar        string            `json:"avatar"`
	Score         int               `json:"score"`
	TotalWin      int               `json:"total_win"`
	Status        ParticipantStatus `json:"status"`
}
