package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus mirrors the status column of the players table.
type PlayerStatus string

const (
	PlayerStatusActive   PlayerStatus = "active"
	PlayerStatusInactive PlayerStatus = "inactive"
	PlayerStatusDeleted  PlayerStatus = "deleted"
)

func (s PlayerStatus) Valid() bool {
	switch s {
	case PlayerStatusActive, PlayerStatusInactive, PlayerStatusDeleted:
		return true
	}
	return false
}

const (
	PlayerNameMinLength = 3
	PlayerNameMaxLength = 20
)

// Player is a registered member of a group.
// Win, Loss and GamesPlayed are not maintained by the scoring engine.
type Player struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Group       GroupKey     `json:"-" db:"player_group"`
	Avatar      string       `json:"avatar" db:"avatar"`
	Win         int          `json:"win" db:"win"`
	Loss        int          `json:"loss" db:"loss"`
	GamesPlayed int          `json:"games_played" db:"games_played"`
	Status      PlayerStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`

	AvatarKey *string `json:"-" db:"avatar_key"`
}

// PlayerRef is the (id, name) pair used by history views.
type PlayerRef struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
}
