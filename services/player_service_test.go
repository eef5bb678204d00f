package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlayerDuplicateNamePerGroup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	other := models.GroupKey("usergroup_2")

	alice, err := f.players.CreatePlayer(ctx, testGroup, CreatePlayerInput{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusActive, alice.Status)
	assert.Equal(t, testGroup, alice.Group)

	_, err = f.players.CreatePlayer(ctx, testGroup, CreatePlayerInput{Name: "alice"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = f.players.CreatePlayer(ctx, other, CreatePlayerInput{Name: "alice"})
	assert.NoError(t, err)
}

func TestCreatePlayerValidation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name  string
		input CreatePlayerInput
	}{
		{"too short", CreatePlayerInput{Name: "Al"}},
		{"too long", CreatePlayerInput{Name: strings.Repeat("a", models.PlayerNameMaxLength+1)}},
		{"blank padding does not count", CreatePlayerInput{Name: "  Al  "}},
		{"unknown status", CreatePlayerInput{Name: "Alice", Status: "retired"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.players.CreatePlayer(context.Background(), testGroup, tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestUpdatePlayer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := mustPlayer(t, f, testGroup, "Alice")
	mustPlayer(t, f, testGroup, "Bob")

	recased := "ALICE"
	updated, err := f.players.UpdatePlayer(ctx, testGroup, alice.ID, UpdatePlayerInput{Name: &recased})
	require.NoError(t, err, "renaming to the same name in another case is not a conflict with itself")
	assert.Equal(t, "ALICE", updated.Name)

	bob := "bob"
	_, err = f.players.UpdatePlayer(ctx, testGroup, alice.ID, UpdatePlayerInput{Name: &bob})
	assert.ErrorIs(t, err, ErrDuplicateName)

	negative := -1
	_, err = f.players.UpdatePlayer(ctx, testGroup, alice.ID, UpdatePlayerInput{Win: &negative})
	assert.ErrorIs(t, err, ErrValidationFailed)

	wins := 3
	avatar := "https://example.com/a.png"
	updated, err = f.players.UpdatePlayer(ctx, testGroup, alice.ID, UpdatePlayerInput{Win: &wins, Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Win)
	assert.Equal(t, avatar, updated.Avatar)
	assert.Equal(t, "ALICE", updated.Name)

	_, err = f.players.UpdatePlayer(ctx, models.GroupKey("usergroup_2"), alice.ID, UpdatePlayerInput{Win: &wins})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPlayers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, name := range []string{"Alice", "Alina", "Bob", "Carol"} {
		mustPlayer(t, f, testGroup, name)
	}
	mustPlayer(t, f, models.GroupKey("usergroup_2"), "Alfred")

	page, err := f.players.ListPlayers(ctx, testGroup, ListPlayersInput{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPlayerPageLimit, page.Limit)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Players, 4)
	assert.Equal(t, "Carol", page.Players[0].Name, "newest first")
	assert.Equal(t, "Alice", page.Players[3].Name)

	page, err = f.players.ListPlayers(ctx, testGroup, ListPlayersInput{Name: "ali", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Players, 1)
	assert.Equal(t, "Alice", page.Players[0].Name)

	_, err = f.players.ListPlayers(ctx, testGroup, ListPlayersInput{Limit: MaxPlayerPageLimit + 1})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = f.players.ListPlayers(ctx, testGroup, ListPlayersInput{Offset: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestDeletePlayer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := mustPlayer(t, f, testGroup, "Alice")

	withAvatar, err := f.players.UploadPlayerAvatar(ctx, testGroup, alice.ID, strings.NewReader("img"), "image/png")
	require.NoError(t, err)

	require.NoError(t, f.players.DeletePlayer(ctx, testGroup, alice.ID))
	assert.Equal(t, []string{*withAvatar.AvatarKey}, f.uploader.deleted)

	_, err = f.players.GetPlayer(ctx, testGroup, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.players.DeletePlayer(ctx, testGroup, alice.ID), ErrNotFound)
}

func TestUploadPlayerAvatar(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := mustPlayer(t, f, testGroup, "Alice")

	_, err := f.players.UploadPlayerAvatar(ctx, testGroup, alice.ID, strings.NewReader("x"), "application/pdf")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.players.UploadPlayerAvatar(ctx, testGroup, uuid.New(), strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := f.players.UploadPlayerAvatar(ctx, testGroup, alice.ID, strings.NewReader("x"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, first.AvatarKey)
	firstKey := *first.AvatarKey
	assert.True(t, strings.HasPrefix(firstKey, "players/usergroup_1/"+alice.ID.String()+"/avatar_"))
	assert.True(t, strings.HasSuffix(firstKey, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+firstKey, first.Avatar)

	f.advance(time.Second)
	second, err := f.players.UploadPlayerAvatar(ctx, testGroup, alice.ID, strings.NewReader("y"), "IMAGE/JPEG")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(*second.AvatarKey, ".jpg"))
	assert.Equal(t, []string{firstKey}, f.uploader.deleted, "the replaced avatar is removed")

	stored, err := f.players.GetPlayer(ctx, testGroup, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Avatar, stored.Avatar)
}

func TestUploadPlayerAvatarWithoutStorage(t *testing.T) {
	f := newFixture()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewPlayerService(&fakeTransactor{}, fakePlayerRepo{f.store}, nil, logger)
	alice, err := svc.CreatePlayer(context.Background(), testGroup, CreatePlayerInput{Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.UploadPlayerAvatar(context.Background(), testGroup, alice.ID, strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, ErrAvatarStorageUnavailable)
}

func TestUpdatePlayerAvatarDropsUploadedObject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := mustPlayer(t, f, testGroup, "Alice")

	uploaded, err := f.players.UploadPlayerAvatar(ctx, testGroup, alice.ID, strings.NewReader("img"), "image/png")
	require.NoError(t, err)
	key := *uploaded.AvatarKey

	same := uploaded.Avatar
	kept, err := f.players.UpdatePlayer(ctx, testGroup, alice.ID, UpdatePlayerInput{Avatar: &same})
	require.NoError(t, err)
	require.NotNil(t, kept.AvatarKey, "setting the same URL keeps the stored object")
	assert.Empty(t, f.uploader.deleted)

	external := "https://example.com/alice.png"
	updated, err := f.players.UpdatePlayer(ctx, testGroup, alice.ID, UpdatePlayerInput{Avatar: &external})
	require.NoError(t, err)
	assert.Equal(t, external, updated.Avatar)
	assert.Nil(t, updated.AvatarKey)
	assert.Equal(t, []string{key}, f.uploader.deleted)

	stored, err := f.players.GetPlayer(ctx, testGroup, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AvatarKey)

	require.NoError(t, f.players.DeletePlayer(ctx, testGroup, alice.ID))
	assert.Equal(t, []string{key}, f.uploader.deleted, "nothing left to remove on delete")
}
