package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type HistoryService interface {
	GetSession(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) (*models.GameSession, error)
	GetSessionHistory(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) (*models.SessionHistory, error)
	ListRecentSessions(ctx context.Context, group models.GroupKey) ([]models.RecentSession, error)
	ListSessionLogs(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) ([]models.GameLog, error)
}

type historyService struct {
	sessionRepo     repositories.SessionRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	winnerRepo      repositories.WinnerRepository
	gameLogRepo     repositories.GameLogRepository
	logger          *slog.Logger
}

func NewHistoryService(
	sessionRepo repositories.SessionRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	winnerRepo repositories.WinnerRepository,
	gameLogRepo repositories.GameLogRepository,
	logger *slog.Logger,
) HistoryService {
	return &historyService{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		winnerRepo:      winnerRepo,
		gameLogRepo:     gameLogRepo,
		logger:          logger,
	}
}

func (s *historyService) GetSession(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) (*models.GameSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, nil, group, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, notFound("game session %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get game session %s: %w", sessionID, err)
	}
	return session, nil
}

func (s *historyService) GetSessionHistory(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) (*models.SessionHistory, error) {
	session, err := s.GetSession(ctx, group, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		rounds       []models.RoundView
		participants []models.ParticipantView
		winners      []models.WinnerView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rounds, err = s.roundRepo.ListBySession(gctx, nil, session.ID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListBySession(gctx, nil, session.ID)
		return err
	})
	g.Go(func() error {
		var err error
		winners, err = s.winnerRepo.ListBySession(gctx, nil, session.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load history of session %s: %w", sessionID, err)
	}

	visible := visibleParticipants(participants)
	refs := make([]models.PlayerRef, len(visible))
	for i, p := range visible {
		refs[i] = models.PlayerRef{PlayerID: p.PlayerID, Name: p.Name}
	}
	if rounds == nil {
		rounds = []models.RoundView{}
	}
	if winners == nil {
		winners = []models.WinnerView{}
	}

	return &models.SessionHistory{
		Session:      *session,
		Rounds:       rounds,
		Participants: refs,
		Winners:      winners,
	}, nil
}

func (s *historyService) ListRecentSessions(ctx context.Context, group models.GroupKey) ([]models.RecentSession, error) {
	sessions, err := s.sessionRepo.ListWithParticipants(ctx, nil, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list game sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, notFound("no game sessions")
	}

	ids := make([]uuid.UUID, len(sessions))
	for i, sc := range sessions {
		ids[i] = sc.Session.ID
	}
	winnersBySession, err := s.winnerRepo.ListBySessionIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load session winners: %w", err)
	}

	out := make([]models.RecentSession, len(sessions))
	for i, sc := range sessions {
		refs := make([]models.PlayerRef, 0, len(winnersBySession[sc.Session.ID]))
		for _, w := range winnersBySession[sc.Session.ID] {
			refs = append(refs, models.PlayerRef{PlayerID: w.PlayerID, Name: w.Name})
		}
		out[i] = models.RecentSession{
			Session:          sc.Session,
			ParticipantCount: sc.ParticipantCount,
			Winners:          refs,
		}
	}
	s.logger.Debug("listed recent sessions", slog.String("group", group.String()), slog.Int("count", len(out)))
	return out, nil
}

func (s *historyService) ListSessionLogs(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) ([]models.GameLog, error) {
	if _, err := s.GetSession(ctx, group, sessionID); err != nil {
		return nil, err
	}
	logs, err := s.gameLogRepo.ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs of session %s: %w", sessionID, err)
	}
	return logs, nil
}
