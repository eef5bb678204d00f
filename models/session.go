package models

import (
	"time"

	"github.com/google/uuid"
)

// EndCondition is the rule class that decides when a session should conclude.
type EndCondition string

const (
	EndConditionScore  EndCondition = "score"
	EndConditionRounds EndCondition = "rounds"
	EndConditionTime   EndCondition = "time"
)

func (c EndCondition) Valid() bool {
	switch c {
	case EndConditionScore, EndConditionRounds, EndConditionTime:
		return true
	}
	return false
}

// SessionStatus mirrors the status column of the game_sessions table.
type SessionStatus string

const (
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// GameSession is one played-out game of a group.
type GameSession struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	Name             string        `json:"name" db:"name"`
	Group            GroupKey      `json:"-" db:"player_group"`
	EndCondition     EndCondition  `json:"end_condition" db:"end_condition"`
	ScoreToWin       *int          `json:"score_to_win,omitempty" db:"score_to_win"`
	MaxRounds        *int          `json:"max_rounds,omitempty" db:"max_rounds"`
	TimeLimitSeconds *int          `json:"time_limit_seconds,omitempty" db:"time_limit_seconds"`
	Status           SessionStatus `json:"status" db:"status"`
	StartTime        time.Time     `json:"start_time" db:"start_time"`
	EndTime          *time.Time    `json:"end_time,omitempty" db:"end_time"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// SessionSummary is the compact view of the ongoing session.
type SessionSummary struct {
	Session             GameSession `json:"session"`
	ParticipantCount    int         `json:"participant_count"`
	RoundsPlayed        int         `json:"rounds_played"`
	EndConditionReached bool        `json:"end_condition_reached"`
}

// SessionRoster is the ongoing session with its scoreboard.
type SessionRoster struct {
	Session      GameSession       `json:"session"`
	Participants []ParticipantView `json:"participants"`
}

// RecentSession is one entry of the group's session list.
type RecentSession struct {
	Session          GameSession `json:"session"`
	ParticipantCount int         `json:"participant_count"`
	Winners          []PlayerRef `json:"winners"`
}
