package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player name conflict")
)

// PlayerFilter narrows ListPlayers. Limit <= 0 means no limit.
type PlayerFilter struct {
	NameContains string
	Offset       int
	Limit        int
}

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.Player, error)
	Update(ctx context.Context, exec SQLExecutor, p *models.Player) error
	Delete(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) error
	ExistsByName(ctx context.Context, exec SQLExecutor, group models.GroupKey, name string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, exec SQLExecutor, group models.GroupKey, filter PlayerFilter) ([]models.Player, int, error)
	ListActiveByIDs(ctx context.Context, exec SQLExecutor, group models.GroupKey, ids []uuid.UUID) ([]models.Player, error)
	ListAvailableForSession(ctx context.Context, exec SQLExecutor, group models.GroupKey, sessionID uuid.UUID) ([]models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, name, player_group, avatar, avatar_key, win, loss, games_played, status, created_at, updated_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		INSERT INTO players (id, name, player_group, avatar, avatar_key, win, loss, games_played, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		p.ID, p.Name, p.Group, p.Avatar, p.AvatarKey, p.Win, p.Loss, p.GamesPlayed, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "players_group_lower_name_key" {
			return ErrPlayerNameConflict
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) scanPlayer(rowScanner interface{ Scan(...interface{}) error }) (*models.Player, error) {
	var p models.Player
	var avatarKey sql.NullString
	err := rowScanner.Scan(
		&p.ID, &p.Name, &p.Group, &p.Avatar, &avatarKey,
		&p.Win, &p.Loss, &p.GamesPlayed, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if avatarKey.Valid {
		p.AvatarKey = &avatarKey.String
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1 AND player_group = $2`

	p, err := r.scanPlayer(getExecutor(r.db, exec).QueryRowContext(ctx, query, id, group))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		UPDATE players
		SET name = $1, avatar = $2, avatar_key = $3, win = $4, loss = $5, games_played = $6, status = $7, updated_at = $8
		WHERE id = $9 AND player_group = $10`

	result, err := getExecutor(r.db, exec).ExecContext(ctx, query,
		p.Name, p.Avatar, p.AvatarKey, p.Win, p.Loss, p.GamesPlayed, p.Status, p.UpdatedAt, p.ID, p.Group,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "players_group_lower_name_key" {
			return ErrPlayerNameConflict
		}
		return fmt.Errorf("failed to update player %s: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, exec SQLExecutor, group models.GroupKey, id uuid.UUID) error {
	query := `DELETE FROM players WHERE id = $1 AND player_group = $2`
	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, id, group)
	if err != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ExistsByName(ctx context.Context, exec SQLExecutor, group models.GroupKey, name string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM players WHERE player_group = $1 AND lower(name) = lower($2)`
	args := []interface{}{group, name}
	if excludeID != nil {
		query += ` AND id <> $3`
		args = append(args, *excludeID)
	}
	query += `)`

	var exists bool
	if err := getExecutor(r.db, exec).QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check player name: %w", err)
	}
	return exists, nil
}

func (r *postgresPlayerRepository) List(ctx context.Context, exec SQLExecutor, group models.GroupKey, filter PlayerFilter) ([]models.Player, int, error) {
	executor := getExecutor(r.db, exec)

	where := ` WHERE player_group = $1`
	args := []interface{}{group}
	argID := 2
	if filter.NameContains != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, argID)
		args = append(args, containsPattern(filter.NameContains))
		argID++
	}

	var total int
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count players: %w", err)
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + playerColumns + ` FROM players`)
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(` ORDER BY created_at DESC, id`)
	if filter.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(` LIMIT $%d`, argID))
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		queryBuilder.WriteString(fmt.Sprintf(` OFFSET $%d`, argID))
		args = append(args, filter.Offset)
	}

	players, err := r.queryPlayers(ctx, executor, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return players, total, nil
}

func (r *postgresPlayerRepository) ListActiveByIDs(ctx context.Context, exec SQLExecutor, group models.GroupKey, ids []uuid.UUID) ([]models.Player, error) {
	if len(ids) == 0 {
		return []models.Player{}, nil
	}
	query := `SELECT ` + playerColumns + ` FROM players
		WHERE player_group = $1 AND status = $2 AND id = ANY($3::uuid[])
		ORDER BY created_at, id`
	return r.queryPlayers(ctx, getExecutor(r.db, exec), query, group, models.PlayerStatusActive, pq.Array(uuidStrings(ids)))
}

func (r *postgresPlayerRepository) ListAvailableForSession(ctx context.Context, exec SQLExecutor, group models.GroupKey, sessionID uuid.UUID) ([]models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players p
		WHERE p.player_group = $1 AND p.status = $2
		  AND NOT EXISTS (SELECT 1 FROM game_participants gp WHERE gp.session_id = $3 AND gp.player_id = p.id)
		ORDER BY lower(p.name)`
	return r.queryPlayers(ctx, getExecutor(r.db, exec), query, group, models.PlayerStatusActive, sessionID)
}

func (r *postgresPlayerRepository) queryPlayers(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.Player, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		p, err := r.scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
