package services

import (
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
)

// roundOutcome is the result of applying one round win to a roster.
type roundOutcome struct {
	Winner       models.ParticipantView
	Delta        int
	Participants []models.ParticipantView
	Details      []models.RoundDetail
}

// scoreRound credits the winner with one point per other active participant and
// charges each of those participants one point. Disabled participants keep their
// score. participants must not contain soft-deleted entries.
func scoreRound(participants []models.ParticipantView, winnerPlayerID uuid.UUID, start, end time.Time) (*roundOutcome, error) {
	winnerIdx := -1
	for i, p := range participants {
		if p.PlayerID == winnerPlayerID {
			winnerIdx = i
			break
		}
	}
	if winnerIdx < 0 {
		return nil, notFound("player %s is not a participant of this session", winnerPlayerID)
	}

	delta := 0
	for i, p := range participants {
		if i != winnerIdx && p.Status == models.ParticipantStatusActive {
			delta++
		}
	}
	if delta == 0 {
		return nil, ErrNoActivePlayers
	}

	updated := make([]models.ParticipantView, len(participants))
	details := make([]models.RoundDetail, len(participants))
	for i, p := range participants {
		added := 0
		switch {
		case i == winnerIdx:
			added = delta
			p.TotalWin++
		case p.Status == models.ParticipantStatusActive:
			added = -1
		}
		p.Score += added
		updated[i] = p
		details[i] = models.RoundDetail{
			PlayerID:   p.PlayerID,
			Name:       p.Name,
			Start:      start,
			End:        end,
			Status:     p.Status,
			Score:      p.Score,
			IsWinner:   i == winnerIdx,
			ScoreAdded: added,
		}
	}

	return &roundOutcome{
		Winner:       updated[winnerIdx],
		Delta:        delta,
		Participants: updated,
		Details:      details,
	}, nil
}

// roundWindowStart is when the round that ends now began: the end of the
// previous round, else the session start, else now.
func roundWindowStart(previous *models.RoundRecord, session *models.GameSession, now time.Time) time.Time {
	switch {
	case previous != nil && !previous.CreatedAt.IsZero():
		return previous.CreatedAt.UTC()
	case session != nil && !session.StartTime.IsZero():
		return session.StartTime.UTC()
	case session != nil && !session.CreatedAt.IsZero():
		return session.CreatedAt.UTC()
	default:
		return now.UTC()
	}
}

// endConditionReached reports whether the session's threshold has been met.
// It is informational only; sessions are never ended automatically.
func endConditionReached(session *models.GameSession, participants []models.ParticipantView, roundsPlayed int, now time.Time) bool {
	switch session.EndCondition {
	case models.EndConditionScore:
		if session.ScoreToWin == nil {
			return false
		}
		for _, p := range participants {
			if p.Score >= *session.ScoreToWin {
				return true
			}
		}
	case models.EndConditionRounds:
		return session.MaxRounds != nil && roundsPlayed >= *session.MaxRounds
	case models.EndConditionTime:
		if session.TimeLimitSeconds == nil {
			return false
		}
		limit := time.Duration(*session.TimeLimitSeconds) * time.Second
		return now.Sub(session.StartTime) >= limit
	}
	return false
}

// topScorers returns every participant holding the maximum score.
func topScorers(participants []models.ParticipantView) []models.ParticipantView {
	if len(participants) == 0 {
		return nil
	}
	best := participants[0].Score
	for _, p := range participants[1:] {
		if p.Score > best {
			best = p.Score
		}
	}
	winners := make([]models.ParticipantView, 0, 1)
	for _, p := range participants {
		if p.Score == best {
			winners = append(winners, p)
		}
	}
	return winners
}
