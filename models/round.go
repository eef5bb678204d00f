package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundRecord is one completed round of a session.
type RoundRecord struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	SessionID uuid.UUID     `json:"session_id" db:"session_id"`
	Round     int           `json:"round" db:"round"`
	WinnerID  *uuid.UUID    `json:"winner_id,omitempty" db:"winner_id"`
	Score     int           `json:"score" db:"score"`
	Details   []RoundDetail `json:"details" db:"details"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// RoundDetail is the snapshot of one participant at the end of a round.
type RoundDetail struct {
	PlayerID   uuid.UUID         `json:"player_id"`
	Name       string            `json:"name"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Status     ParticipantStatus `json:"status"`
	Score      int               `json:"score"`
	IsWinner   bool              `json:"is_winner"`
	ScoreAdded int               `json:"score_added"`
}

// RoundView is a round joined with its winner's name.
type RoundView struct {
	RoundRecord
	WinnerName *string `json:"winner_name"`
}

// WinnerResult is returned after a round winner has been recorded.
type WinnerResult struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	TotalWin int       `json:"total_win"`
	Score    int       `json:"score"`
	Round    int       `json:"round"`
}
