package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	ErrRoundConflict = errors.New("round number already recorded for this session")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.RoundRecord) error
	CountBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) (int, error)
	LastBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) (*models.RoundRecord, error)
	ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.RoundView, error)
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.RoundRecord) error {
	details, err := json.Marshal(round.Details)
	if err != nil {
		return fmt.Errorf("failed to encode round details: %w", err)
	}

	query := `
		INSERT INTO game_rounds (id, session_id, round, winner_id, score, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = getExecutor(r.db, exec).ExecContext(ctx, query,
		round.ID, round.SessionID, round.Round, round.WinnerID, round.Score, string(details), round.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "game_rounds_session_round_key" {
			return ErrRoundConflict
		}
		return fmt.Errorf("failed to create round %d: %w", round.Round, err)
	}
	return nil
}

func (r *postgresRoundRepository) CountBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) (int, error) {
	var count int
	err := getExecutor(r.db, exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_rounds WHERE session_id = $1`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rounds of session %s: %w", sessionID, err)
	}
	return count, nil
}

func scanRound(rowScanner interface{ Scan(...interface{}) error }, round *models.RoundRecord, extra ...interface{}) error {
	var winnerID uuid.NullUUID
	var details []byte
	dest := []interface{}{&round.ID, &round.SessionID, &round.Round, &winnerID, &round.Score, &details, &round.CreatedAt}
	if err := rowScanner.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if winnerID.Valid {
		round.WinnerID = &winnerID.UUID
	}
	round.CreatedAt = round.CreatedAt.UTC()
	round.Details = []models.RoundDetail{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &round.Details); err != nil {
			return fmt.Errorf("failed to decode details of round %d: %w", round.Round, err)
		}
	}
	return nil
}

func (r *postgresRoundRepository) LastBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) (*models.RoundRecord, error) {
	query := `
		SELECT id, session_id, round, winner_id, score, details, created_at
		FROM game_rounds
		WHERE session_id = $1
		ORDER BY round DESC
		LIMIT 1`

	var round models.RoundRecord
	if err := scanRound(getExecutor(r.db, exec).QueryRowContext(ctx, query, sessionID), &round); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get last round of session %s: %w", sessionID, err)
	}
	return &round, nil
}

func (r *postgresRoundRepository) ListBySession(ctx context.Context, exec SQLExecutor, sessionID uuid.UUID) ([]models.RoundView, error) {
	query := `
		SELECT r.id, r.session_id, r.round, r.winner_id, r.score, r.details, r.created_at, p.name
		FROM game_rounds r
		LEFT JOIN players p ON p.id = r.winner_id
		WHERE r.session_id = $1
		ORDER BY r.round ASC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds of session %s: %w", sessionID, err)
	}
	defer rows.Close()

	rounds := make([]models.RoundView, 0)
	for rows.Next() {
		var v models.RoundView
		var winnerName sql.NullString
		if err := scanRound(rows, &v.RoundRecord, &winnerName); err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		if winnerName.Valid {
			v.WinnerName = &winnerName.String
		}
		rounds = append(rounds, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round rows: %w", err)
	}
	return rounds, nil
}
