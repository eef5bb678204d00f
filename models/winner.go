package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionWinner is a participant holding the top score when a session ended.
type SessionWinner struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	PlayerID  uuid.UUID `json:"player_id" db:"player_id"`
	Score     int       `json:"score" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WinnerView is a session winner joined with the player's name.
type WinnerView struct {
	SessionID uuid.UUID `json:"-"`
	PlayerID  uuid.UUID `json:"player_id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
}

// SessionHistory is the full read-back of a session.
type SessionHistory struct {
	Session      GameSession  `json:"session"`
	Rounds       []RoundView  `json:"rounds"`
	Participants []PlayerRef  `json:"participants"`
	Winners      []WinnerView `json:"winners"`
}
