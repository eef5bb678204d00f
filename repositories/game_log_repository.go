package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
)

type GameLogRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.GameLog) error
	ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.GameLog, error)
}

type postgresGameLogRepository struct {
	db *sql.DB
}

func NewPostgresGameLogRepository(db *sql.DB) GameLogRepository {
	return &postgresGameLogRepository{db: db}
}

func (r *postgresGameLogRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.GameLog) error {
	var details interface{}
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode game log details: %w", err)
		}
		details = string(raw)
	}

	query := `
		INSERT INTO game_logs (id, session_id, player_id, action, details, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		entry.ID, entry.SessionID, entry.PlayerID, entry.Action, details, entry.CreatedAt, entry.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to write game log %q: %w", entry.Action, err)
	}
	return nil
}

func (r *postgresGameLogRepository) ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.GameLog, error) {
	query := `
		SELECT id, session_id, player_id, action, details, created_at, created_by
		FROM game_logs
		WHERE session_id = $1
		ORDER BY created_at ASC, id`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list game logs of session %s: %w", sessionID, err)
	}
	defer rows.Close()

	logs := make([]models.GameLog, 0)
	for rows.Next() {
		var entry models.GameLog
		var playerID uuid.NullUUID
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.SessionID, &playerID, &entry.Action, &details, &entry.CreatedAt, &entry.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan game log row: %w", err)
		}
		if playerID.Valid {
			entry.PlayerID = &playerID.UUID
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to decode game log details: %w", err)
			}
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game log rows: %w", err)
	}
	return logs, nil
}
