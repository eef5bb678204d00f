package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/repositories"
	"github.com/google/uuid"
)

const (
	SessionNameMaxLength  = 200
	MinSessionPlayerCount = 2
)

type SessionService interface {
	CreateSession(ctx context.Context, group models.GroupKey, input CreateSessionInput) (*models.GameSession, error)
	EndSession(ctx context.Context, group models.GroupKey) (*models.GameSession, error)
	CancelSession(ctx context.Context, group models.GroupKey) (*models.GameSession, error)
	GetOngoingSessionSummary(ctx context.Context, group models.GroupKey) (*models.SessionSummary, error)
	GetOngoingSessionRoster(ctx context.Context, group models.GroupKey) (*models.SessionRoster, error)
	AddPlayersToSession(ctx context.Context, group models.GroupKey, sessionID uuid.UUID, playerIDs []uuid.UUID) error
	SetParticipantStatus(ctx context.Context, group models.GroupKey, sessionID, playerID uuid.UUID, status models.ParticipantStatus) error
	ListAvailablePlayers(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) ([]models.Player, error)
}

type CreateSessionInput struct {
	Name             string              `json:"name"`
	EndCondition     models.EndCondition `json:"end_condition"`
	ScoreToWin       *int                `json:"score_to_win"`
	MaxRounds        *int                `json:"max_rounds"`
	TimeLimitSeconds *int                `json:"time_limit_seconds"`
	PlayerIDs        []uuid.UUID         `json:"player_ids"`
}

type sessionService struct {
	tx              repositories.Transactor
	sessionRepo     repositories.SessionRepository
	participantRepo repositories.ParticipantRepository
	playerRepo      repositories.PlayerRepository
	roundRepo       repositories.RoundRepository
	winnerRepo      repositories.WinnerRepository
	gameLogRepo     repositories.GameLogRepository
	notifier        Notifier
	logger          *slog.Logger
	now             func() time.Time
}

func NewSessionService(
	tx repositories.Transactor,
	sessionRepo repositories.SessionRepository,
	participantRepo repositories.ParticipantRepository,
	playerRepo repositories.PlayerRepository,
	roundRepo repositories.RoundRepository,
	winnerRepo repositories.WinnerRepository,
	gameLogRepo repositories.GameLogRepository,
	notifier Notifier,
	logger *slog.Logger,
) SessionService {
	return &sessionService{
		tx:              tx,
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		playerRepo:      playerRepo,
		roundRepo:       roundRepo,
		winnerRepo:      winnerRepo,
		gameLogRepo:     gameLogRepo,
		notifier:        orNop(notifier),
		logger:          logger,
		now:             utcNow,
	}
}

func validateCreateSessionInput(input *CreateSessionInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if n := utf8.RuneCountInString(input.Name); n == 0 || n > SessionNameMaxLength {
		return validationError("name must be between 1 and %d characters", SessionNameMaxLength)
	}
	if !input.EndCondition.Valid() {
		return validationError("end_condition must be one of score, rounds, time; got %q", input.EndCondition)
	}
	for field, v := range map[string]*int{
		"score_to_win":       input.ScoreToWin,
		"max_rounds":         input.MaxRounds,
		"time_limit_seconds": input.TimeLimitSeconds,
	} {
		if v != nil && *v <= 0 {
			return validationError("%s must be positive", field)
		}
	}
	if len(input.PlayerIDs) < MinSessionPlayerCount {
		return validationError("at least %d players are required", MinSessionPlayerCount)
	}
	return nil
}

func (s *sessionService) CreateSession(ctx context.Context, group models.GroupKey, input CreateSessionInput) (*models.GameSession, error) {
	if err := validateCreateSessionInput(&input); err != nil {
		return nil, err
	}

	sessionID, err := newID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &models.GameSession{
		ID:               sessionID,
		Name:             input.Name,
		Group:            group,
		EndCondition:     input.EndCondition,
		ScoreToWin:       input.ScoreToWin,
		MaxRounds:        input.MaxRounds,
		TimeLimitSeconds: input.TimeLimitSeconds,
		Status:           models.SessionStatusOngoing,
		StartTime:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var playerCount int
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		_, err := s.sessionRepo.GetOngoing(ctx, exec, group)
		if err == nil {
			return ErrConflictingSession
		}
		if !errors.Is(err, repositories.ErrSessionNotFound) {
			return err
		}

		players, err := s.playerRepo.ListActiveByIDs(ctx, exec, group, uniqueIDs(input.PlayerIDs))
		if err != nil {
			return err
		}
		if len(players) == 0 {
			return ErrNoValidPlayers
		}

		if err := s.sessionRepo.Create(ctx, exec, session); err != nil {
			return err
		}
		participants, err := newParticipants(sessionID, players, now)
		if err != nil {
			return err
		}
		if err := s.participantRepo.CreateBatch(ctx, exec, participants); err != nil {
			return err
		}
		playerCount = len(participants)

		return writeGameLog(ctx, exec, s.gameLogRepo, group, sessionID, nil, models.ActionSessionCreated,
			map[string]any{
				"name":          session.Name,
				"end_condition": session.EndCondition,
				"player_ids":    idStrings(playerIDsOf(players)),
			}, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrConflictingSession), errors.Is(err, repositories.ErrSessionConflict):
			return nil, ErrConflictingSession
		case errors.Is(err, ErrNoValidPlayers):
			return nil, err
		default:
			return nil, fmt.Errorf("failed to create game session: %w", err)
		}
	}

	s.logger.Info("game session created",
		slog.String("session_id", session.ID.String()),
		slog.String("group", group.String()),
		slog.Int("players", playerCount))
	publish(ctx, s.notifier, s.logger, models.EventSessionCreated, group, session.ID, session, now)
	return session, nil
}

func (s *sessionService) EndSession(ctx context.Context, group models.GroupKey) (*models.GameSession, error) {
	var session *models.GameSession
	var winners []models.WinnerView

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		session, err = s.sessionRepo.LockOngoing(ctx, exec, group)
		if err != nil {
			return err
		}

		all, err := s.participantRepo.ListBySession(ctx, exec, session.ID)
		if err != nil {
			return err
		}
		visible := visibleParticipants(all)
		if len(visible) == 0 {
			return notFound("game session %s has no participants", session.ID)
		}

		now := s.now()
		top := topScorers(visible)
		rows := make([]*models.SessionWinner, 0, len(top))
		winners = make([]models.WinnerView, 0, len(top))
		for _, p := range top {
			id, err := newID()
			if err != nil {
				return err
			}
			rows = append(rows, &models.SessionWinner{
				ID:        id,
				SessionID: session.ID,
				PlayerID:  p.PlayerID,
				Score:     p.Score,
				CreatedAt: now,
			})
			winners = append(winners, models.WinnerView{SessionID: session.ID, PlayerID: p.PlayerID, Name: p.Name, Score: p.Score})
		}
		if err := s.winnerRepo.CreateBatch(ctx, exec, rows); err != nil {
			return err
		}

		if err := s.sessionRepo.Finish(ctx, exec, session.ID, models.SessionStatusCompleted, now); err != nil {
			return err
		}
		session.Status = models.SessionStatusCompleted
		session.EndTime = &now
		session.UpdatedAt = now

		return writeGameLog(ctx, exec, s.gameLogRepo, group, session.ID, nil, models.ActionSessionEnded,
			map[string]any{"winner_ids": idStrings(winnerIDsOf(winners)), "score": top[0].Score}, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSessionNotFound):
			return nil, notFound("no ongoing game session")
		case errors.Is(err, ErrNotFound):
			return nil, err
		default:
			return nil, fmt.Errorf("failed to end game session: %w", err)
		}
	}

	s.logger.Info("game session ended",
		slog.String("session_id", session.ID.String()),
		slog.Int("winners", len(winners)))
	publish(ctx, s.notifier, s.logger, models.EventSessionEnded, group, session.ID, winners, *session.EndTime)
	return session, nil
}

func (s *sessionService) CancelSession(ctx context.Context, group models.GroupKey) (*models.GameSession, error) {
	var session *models.GameSession

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		session, err = s.sessionRepo.LockOngoing(ctx, exec, group)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.sessionRepo.Finish(ctx, exec, session.ID, models.SessionStatusCancelled, now); err != nil {
			return err
		}
		session.Status = models.SessionStatusCancelled
		session.EndTime = &now
		session.UpdatedAt = now

		return writeGameLog(ctx, exec, s.gameLogRepo, group, session.ID, nil, models.ActionSessionCancelled, nil, now)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, notFound("no ongoing game session")
		}
		return nil, fmt.Errorf("failed to cancel game session: %w", err)
	}

	s.logger.Info("game session cancelled", slog.String("session_id", session.ID.String()))
	publish(ctx, s.notifier, s.logger, models.EventSessionCancelled, group, session.ID, session, *session.EndTime)
	return session, nil
}

func (s *sessionService) getOngoing(ctx context.Context, group models.GroupKey) (*models.GameSession, []models.ParticipantView, error) {
	session, err := s.sessionRepo.GetOngoing(ctx, nil, group)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, nil, notFound("no ongoing game session")
		}
		return nil, nil, fmt.Errorf("failed to get ongoing game session: %w", err)
	}
	all, err := s.participantRepo.ListBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list participants of session %s: %w", session.ID, err)
	}
	return session, visibleParticipants(all), nil
}

func (s *sessionService) GetOngoingSessionSummary(ctx context.Context, group models.GroupKey) (*models.SessionSummary, error) {
	session, participants, err := s.getOngoing(ctx, group)
	if err != nil {
		return nil, err
	}
	rounds, err := s.roundRepo.CountBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rounds of session %s: %w", session.ID, err)
	}
	return &models.SessionSummary{
		Session:             *session,
		ParticipantCount:    len(participants),
		RoundsPlayed:        rounds,
		EndConditionReached: endConditionReached(session, participants, rounds, s.now()),
	}, nil
}

func (s *sessionService) GetOngoingSessionRoster(ctx context.Context, group models.GroupKey) (*models.SessionRoster, error) {
	session, participants, err := s.getOngoing(ctx, group)
	if err != nil {
		return nil, err
	}
	return &models.SessionRoster{Session: *session, Participants: participants}, nil
}

func (s *sessionService) AddPlayersToSession(ctx context.Context, group models.GroupKey, sessionID uuid.UUID, playerIDs []uuid.UUID) error {
	ids := uniqueIDs(playerIDs)
	if len(ids) == 0 {
		return validationError("player_ids must not be empty")
	}

	var added []*models.GameParticipant
	now := s.now()
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		session, err := s.sessionRepo.LockByID(ctx, exec, group, sessionID)
		if err != nil {
			return err
		}

		existing, err := s.participantRepo.ListBySession(ctx, exec, session.ID)
		if err != nil {
			return err
		}
		joined := make(map[uuid.UUID]struct{}, len(existing))
		for _, p := range existing {
			joined[p.PlayerID] = struct{}{}
		}

		players, err := s.playerRepo.ListActiveByIDs(ctx, exec, group, ids)
		if err != nil {
			return err
		}
		fresh := make([]models.Player, 0, len(players))
		for _, p := range players {
			if _, ok := joined[p.ID]; !ok {
				fresh = append(fresh, p)
			}
		}
		if len(fresh) == 0 {
			return ErrNoNewPlayers
		}

		added, err = newParticipants(session.ID, fresh, now)
		if err != nil {
			return err
		}
		if err := s.participantRepo.CreateBatch(ctx, exec, added); err != nil {
			return err
		}

		return writeGameLog(ctx, exec, s.gameLogRepo, group, session.ID, nil, models.ActionPlayersAdded,
			map[string]any{"player_ids": idStrings(playerIDsOf(fresh))}, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSessionNotFound):
			return notFound("game session %s", sessionID)
		case errors.Is(err, ErrNoNewPlayers):
			return err
		case errors.Is(err, repositories.ErrParticipantConflict):
			return ErrNoNewPlayers
		default:
			return fmt.Errorf("failed to add players to session %s: %w", sessionID, err)
		}
	}

	s.logger.Info("players added to game session",
		slog.String("session_id", sessionID.String()),
		slog.Int("added", len(added)))
	publish(ctx, s.notifier, s.logger, models.EventPlayersAdded, group, sessionID, added, now)
	return nil
}

func (s *sessionService) SetParticipantStatus(ctx context.Context, group models.GroupKey, sessionID, playerID uuid.UUID, status models.ParticipantStatus) error {
	if !status.Valid() {
		return validationError("status must be one of active, disabled, deleted; got %q", status)
	}

	now := s.now()
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		session, err := s.sessionRepo.LockByID(ctx, exec, group, sessionID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionStatusOngoing {
			return repositories.ErrParticipantNotFound
		}
		if err := s.participantRepo.UpdateStatusInOngoing(ctx, exec, group, sessionID, playerID, status, now); err != nil {
			return err
		}
		return writeGameLog(ctx, exec, s.gameLogRepo, group, sessionID, &playerID, models.ActionParticipantStatusChanged,
			map[string]any{"status": status}, now)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) || errors.Is(err, repositories.ErrParticipantNotFound) {
			return notFound("player %s in ongoing game session %s", playerID, sessionID)
		}
		return fmt.Errorf("failed to set participant status: %w", err)
	}

	s.logger.Info("participant status changed",
		slog.String("session_id", sessionID.String()),
		slog.String("player_id", playerID.String()),
		slog.String("status", string(status)))
	publish(ctx, s.notifier, s.logger, models.EventParticipantUpdated, group, sessionID,
		map[string]any{"player_id": playerID, "status": status}, now)
	return nil
}

func (s *sessionService) ListAvailablePlayers(ctx context.Context, group models.GroupKey, sessionID uuid.UUID) ([]models.Player, error) {
	if _, err := s.sessionRepo.GetByID(ctx, nil, group, sessionID); err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, notFound("game session %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get game session %s: %w", sessionID, err)
	}
	players, err := s.playerRepo.ListAvailableForSession(ctx, nil, group, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	if players == nil {
		players = []models.Player{}
	}
	return players, nil
}

func newParticipants(sessionID uuid.UUID, players []models.Player, at time.Time) ([]*models.GameParticipant, error) {
	out := make([]*models.GameParticipant, 0, len(players))
	for _, p := range players {
		id, err := newID()
		if err != nil {
			return nil, err
		}
		out = append(out, &models.GameParticipant{
			ID:        id,
			SessionID: sessionID,
			PlayerID:  p.ID,
			Status:    models.ParticipantStatusActive,
			CreatedAt: at,
			UpdatedAt: at,
		})
	}
	return out, nil
}

func playerIDsOf(players []models.Player) []uuid.UUID {
	ids := make([]uuid.UUID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

func winnerIDsOf(winners []models.WinnerView) []uuid.UUID {
	ids := make([]uuid.UUID, len(winners))
	for i, w := range winners {
		ids[i] = w.PlayerID
	}
	return ids
}
