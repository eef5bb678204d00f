package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/repositories"
	"github.com/Dosada05/scorekeeper/storage"
	"github.com/google/uuid"
)

const (
	DefaultPlayerPageLimit = 10
	MaxPlayerPageLimit     = 100
)

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type PlayerService interface {
	CreatePlayer(ctx context.Context, group models.GroupKey, input CreatePlayerInput) (*models.Player, error)
	GetPlayer(ctx context.Context, group models.GroupKey, id uuid.UUID) (*models.Player, error)
	UpdatePlayer(ctx context.Context, group models.GroupKey, id uuid.UUID, input UpdatePlayerInput) (*models.Player, error)
	DeletePlayer(ctx context.Context, group models.GroupKey, id uuid.UUID) error
	ListPlayers(ctx context.Context, group models.GroupKey, input ListPlayersInput) (*PlayerPage, error)
	UploadPlayerAvatar(ctx context.Context, group models.GroupKey, id uuid.UUID, file io.Reader, contentType string) (*models.Player, error)
}

type CreatePlayerInput struct {
	Name   string              `json:"name"`
	Avatar string              `json:"avatar"`
	Status models.PlayerStatus `json:"status"`
}

// UpdatePlayerInput changes only the fields that are set.
type UpdatePlayerInput struct {
	Name        *string              `json:"name"`
	Avatar      *string              `json:"avatar"`
	Status      *models.PlayerStatus `json:"status"`
	Win         *int                 `json:"win"`
	Loss        *int                 `json:"loss"`
	GamesPlayed *int                 `json:"games_played"`
}

type ListPlayersInput struct {
	Name   string
	Offset int
	Limit  int
}

type PlayerPage struct {
	Players []models.Player `json:"players"`
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
}

type playerService struct {
	tx         repositories.Transactor
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
	now        func() time.Time
}

// NewPlayerService builds the player registry. uploader may be nil, in which
// case avatar uploads fail with ErrAvatarStorageUnavailable.
func NewPlayerService(
	tx repositories.Transactor,
	playerRepo repositories.PlayerRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		tx:         tx,
		playerRepo: playerRepo,
		uploader:   uploader,
		logger:     logger,
		now:        utcNow,
	}
}

func normalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	length := utf8.RuneCountInString(name)
	if length < models.PlayerNameMinLength || length > models.PlayerNameMaxLength {
		return "", validationError("name must be between %d and %d characters", models.PlayerNameMinLength, models.PlayerNameMaxLength)
	}
	return name, nil
}

func validatePlayerStatus(status models.PlayerStatus) error {
	if !status.Valid() {
		return validationError("status must be one of active, inactive, deleted; got %q", status)
	}
	return nil
}

func validateCounter(field string, v *int) error {
	if v != nil && *v < 0 {
		return validationError("%s must not be negative", field)
	}
	return nil
}

func (s *playerService) CreatePlayer(ctx context.Context, group models.GroupKey, input CreatePlayerInput) (*models.Player, error) {
	name, err := normalizePlayerName(input.Name)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = models.PlayerStatusActive
	}
	if err := validatePlayerStatus(status); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	player := &models.Player{
		ID:        id,
		Name:      name,
		Group:     group,
		Avatar:    input.Avatar,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		exists, err := s.playerRepo.ExistsByName(ctx, exec, group, name, nil)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		return s.playerRepo.Create(ctx, exec, player)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		if errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	s.logger.Info("player created", slog.String("player_id", player.ID.String()), slog.String("group", group.String()))
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, group models.GroupKey, id uuid.UUID) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, group, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, notFound("player %s", id)
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return player, nil
}

func (s *playerService) UpdatePlayer(ctx context.Context, group models.GroupKey, id uuid.UUID, input UpdatePlayerInput) (*models.Player, error) {
	var name string
	if input.Name != nil {
		n, err := normalizePlayerName(*input.Name)
		if err != nil {
			return nil, err
		}
		name = n
	}
	if input.Status != nil {
		if err := validatePlayerStatus(*input.Status); err != nil {
			return nil, err
		}
	}
	for field, v := range map[string]*int{"win": input.Win, "loss": input.Loss, "games_played": input.GamesPlayed} {
		if err := validateCounter(field, v); err != nil {
			return nil, err
		}
	}

	var player *models.Player
	var replacedKey string
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		existing, err := s.playerRepo.GetByID(ctx, exec, group, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			exists, err := s.playerRepo.ExistsByName(ctx, exec, group, name, &existing.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", ErrDuplicateName, name)
			}
			existing.Name = name
		}
		if input.Avatar != nil && *input.Avatar != existing.Avatar {
			// The stored object no longer backs the avatar URL.
			replacedKey = derefString(existing.AvatarKey)
			existing.Avatar = *input.Avatar
			existing.AvatarKey = nil
		}
		if input.Status != nil {
			existing.Status = *input.Status
		}
		if input.Win != nil {
			existing.Win = *input.Win
		}
		if input.Loss != nil {
			existing.Loss = *input.Loss
		}
		if input.GamesPlayed != nil {
			existing.GamesPlayed = *input.GamesPlayed
		}
		existing.UpdatedAt = s.now()

		if err := s.playerRepo.Update(ctx, exec, existing); err != nil {
			return err
		}
		player = existing
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerNotFound):
			return nil, notFound("player %s", id)
		case errors.Is(err, repositories.ErrPlayerNameConflict):
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		case errors.Is(err, ErrDuplicateName):
			return nil, err
		default:
			return nil, fmt.Errorf("failed to update player %s: %w", id, err)
		}
	}

	if replacedKey != "" && s.uploader != nil {
		if err := s.uploader.Delete(ctx, replacedKey); err != nil {
			s.logger.Warn("failed to delete previous avatar", slog.String("key", replacedKey), slog.Any("error", err))
		}
	}
	return player, nil
}

func (s *playerService) DeletePlayer(ctx context.Context, group models.GroupKey, id uuid.UUID) error {
	player, err := s.playerRepo.GetByID(ctx, nil, group, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return notFound("player %s", id)
		}
		return fmt.Errorf("failed to get player %s: %w", id, err)
	}

	if err := s.playerRepo.Delete(ctx, nil, group, id); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return notFound("player %s", id)
		}
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}

	if player.AvatarKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *player.AvatarKey); err != nil {
			s.logger.Warn("failed to delete avatar of removed player",
				slog.String("player_id", id.String()), slog.Any("error", err))
		}
	}
	s.logger.Info("player deleted", slog.String("player_id", id.String()), slog.String("group", group.String()))
	return nil
}

func (s *playerService) ListPlayers(ctx context.Context, group models.GroupKey, input ListPlayersInput) (*PlayerPage, error) {
	limit := input.Limit
	if limit == 0 {
		limit = DefaultPlayerPageLimit
	}
	if limit < 1 || limit > MaxPlayerPageLimit {
		return nil, validationError("limit must be between 1 and %d", MaxPlayerPageLimit)
	}
	if input.Offset < 0 {
		return nil, validationError("offset must not be negative")
	}

	filter := repositories.PlayerFilter{
		NameContains: strings.TrimSpace(input.Name),
		Offset:       input.Offset,
		Limit:        limit,
	}
	players, total, err := s.playerRepo.List(ctx, nil, group, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if players == nil {
		players = []models.Player{}
	}
	return &PlayerPage{Players: players, Total: total, Offset: input.Offset, Limit: limit}, nil
}

func (s *playerService) UploadPlayerAvatar(ctx context.Context, group models.GroupKey, id uuid.UUID, file io.Reader, contentType string) (*models.Player, error) {
	if s.uploader == nil {
		return nil, ErrAvatarStorageUnavailable
	}
	ext, ok := allowedAvatarTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, validationError("unsupported avatar content type %q", contentType)
	}

	player, err := s.GetPlayer(ctx, group, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := fmt.Sprintf("players/%s/%s/avatar_%d%s", group, id, now.Unix(), ext)
	uploaded, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for player %s: %w", id, err)
	}

	oldKey := derefString(player.AvatarKey)
	player.Avatar = uploaded.Location
	player.AvatarKey = &uploaded.Key
	player.UpdatedAt = now

	if err := s.playerRepo.Update(ctx, nil, player); err != nil {
		if delErr := s.uploader.Delete(ctx, uploaded.Key); delErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", slog.String("key", uploaded.Key), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, notFound("player %s", id)
		}
		return nil, fmt.Errorf("failed to save avatar for player %s: %w", id, err)
	}

	if oldKey != "" && oldKey != uploaded.Key {
		if err := s.uploader.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("failed to delete previous avatar", slog.String("key", oldKey), slog.Any("error", err))
		}
	}
	return player, nil
}
