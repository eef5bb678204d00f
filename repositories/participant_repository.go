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
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantConflict = errors.New("player is already a participant of this session")
)

type ParticipantRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.GameParticipant) error
	// ListBySession returns every participant of the session, deleted ones included,
	// joined with the player's name and avatar.
	ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.ParticipantView, error)
	UpdateStatusInOngoing(ctx context.Context, exec SQLExecutor, group models.GroupKey, sessionID, playerID uuid.UUID, status models.ParticipantStatus, at time.Time) error
	// ApplyRoundResult credits the winner and charges one point to every other active participant.
	ApplyRoundResult(ctx context.Context, exec SQLExecutor, sessionID, winnerParticipantID uuid.UUID, delta int, at time.Time) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.GameParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	executor := getExecutor(r.db, exec)
	query := `
		INSERT INTO game_participants (id, session_id, player_id, status, total_win, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, p := range participants {
		_, err := executor.ExecContext(ctx, query,
			p.ID, p.SessionID, p.PlayerID, p.Status, p.TotalWin, p.Score, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == "game_participants_session_player_key" {
				return ErrParticipantConflict
			}
			return fmt.Errorf("failed to create participant for player %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresParticipantRepository) ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.ParticipantView, error) {
	query := `
		SELECT gp.id, gp.player_id, COALESCE(p.name, ''), COALESCE(p.avatar, ''), gp.score, gp.total_win, gp.status
		FROM game_participants gp
		LEFT JOIN players p ON p.id = gp.player_id
		WHERE gp.session_id = $1
		ORDER BY gp.created_at ASC, gp.id`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of session %s: %w", sessionID, err)
	}
	defer rows.Close()

	participants := make([]models.ParticipantView, 0)
	for rows.Next() {
		var v models.ParticipantView
		if err := rows.Scan(&v.ParticipantID, &v.PlayerID, &v.Name, &v.Avatar, &v.Score, &v.TotalWin, &v.Status); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateStatusInOngoing(ctx context.Context, exec SQLExecutor, group models.GroupKey, sessionID, playerID uuid.UUID, status models.ParticipantStatus, at time.Time) error {
	query := `
		UPDATE game_participants gp
		SET status = $1, updated_at = $2
		FROM game_sessions s
		WHERE gp.session_id = s.id
		  AND s.id = $3 AND gp.player_id = $4
		  AND s.player_group = $5 AND s.status = $6`

	result, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		status, at, sessionID, playerID, group, models.SessionStatusOngoing,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ApplyRoundResult(ctx context.Context, exec SQLExecutor, sessionID, winnerParticipantID uuid.UUID, delta int, at time.Time) error {
	executor := getExecutor(r.db, exec)

	result, err := executor.ExecContext(ctx, `
		UPDATE game_participants
		SET score = score + $1, total_win = total_win + 1, updated_at = $2
		WHERE id = $3 AND session_id = $4`,
		delta, at, winnerParticipantID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit round winner: %w", err)
	}
	if err := checkAffectedRows(result, ErrParticipantNotFound); err != nil {
		return err
	}

	_, err = executor.ExecContext(ctx, `
		UPDATE game_participants
		SET score = score - 1, updated_at = $1
		WHERE session_id = $2 AND id <> $3 AND status = $4`,
		at, sessionID, winnerParticipantID, models.ParticipantStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to charge round losers: %w", err)
	}
	return nil
}
