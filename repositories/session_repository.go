package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrSessionConflict = errors.New("group already has an ongoing game session")
)

// SessionWithCount is a session annotated with its visible participant count.
type SessionWithCount struct {
	Session          models.GameSession
	ParticipantCount int
}

type SessionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, s *models.GameSession) error
	GetByID(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.GameSession, error)
	GetOngoing(ctx context.Context, exec SQLExecutor, group models.GroupKey) (*models.GameSession, error)
	// LockOngoing and LockByID take a row lock held until the transaction ends.
	LockOngoing(ctx context.Context, exec SQLExecutor, group models.GroupKey) (*models.GameSession, error)
	LockByID(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.GameSession, error)
	Finish(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.SessionStatus, endTime time.Time) error
	ListWithParticipants(ctx context.Context, exec SQLExecutor, group models.GroupKey) ([]SessionWithCount, error)
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

const sessionColumns = `s.id, s.name, s.player_group, s.end_condition, s.score_to_win, s.max_rounds, s.time_limit_seconds,
	s.status, s.start_time, s.end_time, s.created_at, s.updated_at`

func (r *postgresSessionRepository) Create(ctx context.Context, exec SQLExecutor, s *models.GameSession) error {
	query := `
		INSERT INTO game_sessions
			(id, name, player_group, end_condition, score_to_win, max_rounds, time_limit_seconds,
			 status, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		s.ID, s.Name, s.Group, s.EndCondition, s.ScoreToWin, s.MaxRounds, s.TimeLimitSeconds,
		s.Status, s.StartTime, s.EndTime, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "game_sessions_one_ongoing_per_group" {
			return ErrSessionConflict
		}
		return fmt.Errorf("failed to create game session: %w", err)
	}
	return nil
}

func (r *postgresSessionRepository) scanSession(rowScanner interface{ Scan(...interface{}) error }, extra ...interface{}) (*models.GameSession, error) {
	var s models.GameSession
	var scoreToWin, maxRounds, timeLimit sql.NullInt64
	var endTime sql.NullTime
	dest := []interface{}{
		&s.ID, &s.Name, &s.Group, &s.EndCondition, &scoreToWin, &maxRounds, &timeLimit,
		&s.Status, &s.StartTime, &endTime, &s.CreatedAt, &s.UpdatedAt,
	}
	if err := rowScanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.ScoreToWin = intPtr(scoreToWin)
	s.MaxRounds = intPtr(maxRounds)
	s.TimeLimitSeconds = intPtr(timeLimit)
	s.EndTime = utcPtr(endTime)
	s.StartTime = s.StartTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (r *postgresSessionRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.GameSession, error) {
	s, err := r.scanSession(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find game session: %w", err)
	}
	return s, nil
}

func (r *postgresSessionRepository) GetByID(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions s WHERE s.id = $1 AND s.player_group = $2`
	return r.findOne(ctx, exec, query, id, group)
}

func (r *postgresSessionRepository) GetOngoing(ctx context.Context, exec SQLExecutor, group models.GroupKey) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions s WHERE s.player_group = $1 AND s.status = $2`
	return r.findOne(ctx, exec, query, group, models.SessionStatusOngoing)
}

func (r *postgresSessionRepository) LockOngoing(ctx context.Context, exec SQLExecutor, group models.GroupKey) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions s WHERE s.player_group = $1 AND s.status = $2 FOR UPDATE`
	return r.findOne(ctx, exec, query, group, models.SessionStatusOngoing)
}

func (r *postgresSessionRepository) LockByID(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions s WHERE s.id = $1 AND s.player_group = $2 FOR UPDATE`
	return r.findOne(ctx, exec, query, id, group)
}

func (r *postgresSessionRepository) Finish(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.SessionStatus, endTime time.Time) error {
	query := `UPDATE game_sessions SET status = $1, end_time = $2, updated_at = $2 WHERE id = $3`
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, status, endTime, id)
	if err != nil {
		return fmt.Errorf("failed to update game session %s status: %w", id, err)
	}
	return checkAffectedRows(result, ErrSessionNotFound)
}

func (r *postgresSessionRepository) ListWithParticipants(ctx context.Context, exec SQLExecutor, group models.GroupKey) ([]SessionWithCount, error) {
	query := `
		SELECT ` + sessionColumns + `, pc.cnt
		FROM game_sessions s
		JOIN (
			SELECT session_id, COUNT(*) AS cnt
			FROM game_participants
			WHERE status <> $2
			GROUP BY session_id
		) pc ON pc.session_id = s.id
		WHERE s.player_group = $1
		ORDER BY s.start_time DESC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, group, models.ParticipantStatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list game sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]SessionWithCount, 0)
	for rows.Next() {
		var count int
		s, err := r.scanSession(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game session row: %w", err)
		}
		sessions = append(sessions, SessionWithCount{Session: *s, ParticipantCount: count})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game session rows: %w", err)
	}
	return sessions, nil
}
