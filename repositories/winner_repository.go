package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type WinnerRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, winners []*models.SessionWinner) error
	ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.WinnerView, error)
	ListBySessionIDs(ctx context.Context, exec SQLExecutor, sessionIDs []uuid.UUID) (map[uuid.UUID][]models.WinnerView, error)
}

type postgresWinnerRepository struct {
	db *sql.DB
}

func NewPostgresWinnerRepository(db *sql.DB) WinnerRepository {
	return &postgresWinnerRepository{db: db}
}

func (r *postgresWinnerRepository) CreateBatch(ctx context.Context, exec SQLExecutor, winners []*models.SessionWinner) error {
	executor := getExecutor(r.db, exec)
	query := `INSERT INTO session_winners (id, session_id, player_id, score, created_at) VALUES ($1, $2, $3, $4, $5)`
	for _, w := range winners {
		if _, err := executor.ExecContext(ctx, query, w.ID, w.SessionID, w.PlayerID, w.Score, w.CreatedAt); err != nil {
			return fmt.Errorf("failed to record winner %s of session %s: %w", w.PlayerID, w.SessionID, err)
		}
	}
	return nil
}

const winnerViewQuery = `
	SELECT w.session_id, w.player_id, COALESCE(p.name, ''), w.score
	FROM session_winners w
	LEFT JOIN players p ON p.id = w.player_id`

func (r *postgresWinnerRepository) ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.WinnerView, error) {
	query := winnerViewQuery + ` WHERE w.session_id = $1 ORDER BY w.created_at, w.id`
	byID, err := r.query(ctx, getExecutor(r.db, exec), query, sessionID)
	if err != nil {
		return nil, err
	}
	if winners, ok := byID[sessionID]; ok {
		return winners, nil
	}
	return []models.WinnerView{}, nil
}

func (r *postgresWinnerRepository) ListBySessionIDs(ctx context.Context, exec SQLExecutor, sessionIDs []uuid.UUID) (map[uuid.UUID][]models.WinnerView, error) {
	if len(sessionIDs) == 0 {
		return map[uuid.UUID][]models.WinnerView{}, nil
	}
	query := winnerViewQuery + ` WHERE w.session_id = ANY($1::uuid[]) ORDER BY w.created_at, w.id`
	return r.query(ctx, getExecutor(r.db, exec), query, pq.Array(uuidStrings(sessionIDs)))
}

func (r *postgresWinnerRepository) query(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) (map[uuid.UUID][]models.WinnerView, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list session winners: %w", err)
	}
	defer rows.Close()

	winners := make(map[uuid.UUID][]models.WinnerView)
	for rows.Next() {
		var w models.WinnerView
		if err := rows.Scan(&w.SessionID, &w.PlayerID, &w.Name, &w.Score); err != nil {
			return nil, fmt.Errorf("failed to scan session winner row: %w", err)
		}
		winners[w.SessionID] = append(winners[w.SessionID], w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session winner rows: %w", err)
	}
	return winners, nil
}
