package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/repositories"
	"github.com/google/uuid"
)

type ScoringService interface {
	RecordWinner(ctx context.Context, group models.GroupKey, sessionID, playerID uuid.UUID) (*models.WinnerResult, error)
}

type scoringService struct {
	tx              repositories.Transactor
	sessionRepo     repositories.SessionRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	gameLogRepo     repositories.GameLogRepository
	notifier        Notifier
	logger          *slog.Logger
	now             func() time.Time
}

func NewScoringService(
	tx repositories.Transactor,
	sessionRepo repositories.SessionRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	gameLogRepo repositories.GameLogRepository,
	notifier Notifier,
	logger *slog.Logger,
) ScoringService {
	return &scoringService{
		tx:              tx,
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		gameLogRepo:     gameLogRepo,
		notifier:        orNop(notifier),
		logger:          logger,
		now:             utcNow,
	}
}

// RecordWinner applies one round won by playerID and appends the round record.
// Calls for the same session are serialized by the session row lock.
func (s *scoringService) RecordWinner(ctx context.Context, group models.GroupKey, sessionID, playerID uuid.UUID) (*models.WinnerResult, error) {
	var result *models.WinnerResult
	var round *models.RoundRecord

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		session, err := s.sessionRepo.LockByID(ctx, exec, group, sessionID)
		if err != nil {
			return err
		}

		all, err := s.participantRepo.ListBySession(ctx, exec, session.ID)
		if err != nil {
			return err
		}

		previous, err := s.roundRepo.LastBySession(ctx, exec, session.ID)
		if err != nil && !errors.Is(err, repositories.ErrRoundNotFound) {
			return err
		}

		end := s.now()
		start := roundWindowStart(previous, session, end)
		outcome, err := scoreRound(visibleParticipants(all), playerID, start, end)
		if err != nil {
			return err
		}

		if err := s.participantRepo.ApplyRoundResult(ctx, exec, session.ID, outcome.Winner.ParticipantID, outcome.Delta, end); err != nil {
			return err
		}

		count, err := s.roundRepo.CountBySession(ctx, exec, session.ID)
		if err != nil {
			return err
		}
		roundID, err := newID()
		if err != nil {
			return err
		}
		winnerID := outcome.Winner.PlayerID
		round = &models.RoundRecord{
			ID:        roundID,
			SessionID: session.ID,
			Round:     count + 1,
			WinnerID:  &winnerID,
			Score:     outcome.Delta,
			Details:   outcome.Details,
			CreatedAt: end,
		}
		if err := s.roundRepo.Create(ctx, exec, round); err != nil {
			return err
		}

		if err := writeGameLog(ctx, exec, s.gameLogRepo, group, session.ID, &winnerID, models.ActionRoundWon,
			map[string]any{"round": round.Round, "score": outcome.Delta}, end); err != nil {
			return err
		}

		result = &models.WinnerResult{
			PlayerID: winnerID,
			Name:     outcome.Winner.Name,
			Avatar:   outcome.Winner.Avatar,
			TotalWin: outcome.Winner.TotalWin,
			Score:    outcome.Winner.Score,
			Round:    round.Round,
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSessionNotFound):
			return nil, notFound("game session %s", sessionID)
		case errors.Is(err, repositories.ErrParticipantNotFound):
			return nil, notFound("player %s is not a participant of game session %s", playerID, sessionID)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoActivePlayers):
			return nil, err
		default:
			return nil, fmt.Errorf("failed to record round winner for session %s: %w", sessionID, err)
		}
	}

	s.logger.Info("round recorded",
		slog.String("session_id", sessionID.String()),
		slog.Int("round", round.Round),
		slog.String("winner_id", playerID.String()),
		slog.Int("score", round.Score))
	publish(ctx, s.notifier, s.logger, models.EventRoundRecorded, group, sessionID, round, round.CreatedAt)
	return result, nil
}
