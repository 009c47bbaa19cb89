package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTrack(itemID string) model.Track {
	return model.Track{
		ItemID:  itemID,
		Label:   "",
		Notify:  true,
		AddedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestTrackRepo_Add(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)
	ctx := context.Background()

	track, err := repo.Add(ctx, makeTrack("100001"))
	require.NoError(t, err)
	assert.NotZero(t, track.ID)

	got, err := repo.GetByItemID(ctx, "100001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "100001", got.ItemID)
	assert.True(t, got.Notify)
}

func TestTrackRepo_Add_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, makeTrack("100001"))
	require.NoError(t, err)

	_, err = repo.Add(ctx, makeTrack("100001"))
	assert.ErrorIs(t, err, driven.ErrTrackAlreadyExists)
}

func TestTrackRepo_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)
	ctx := context.Background()

	track, err := repo.Add(ctx, makeTrack("100001"))
	require.NoError(t, err)

	track.Label = "Friday bakery run"
	track.MinQuantity = 2
	track.Notify = false
	track.Notes = "Best **croissants** in town"
	require.NoError(t, repo.Update(ctx, track))

	got, err := repo.GetByItemID(ctx, "100001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Friday bakery run", got.Label)
	assert.Equal(t, 2, got.MinQuantity)
	assert.False(t, got.Notify)
	assert.Equal(t, "Best **croissants** in town", got.Notes)
}

func TestTrackRepo_Update_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)

	err := repo.Update(context.Background(), makeTrack("999999"))
	assert.ErrorIs(t, err, driven.ErrTrackNotFound)
}

func TestTrackRepo_Remove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, makeTrack("100001"))
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, "100001"))

	got, err := repo.GetByItemID(ctx, "100001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTrackRepo_Remove_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)

	err := repo.Remove(context.Background(), "999999")
	assert.ErrorIs(t, err, driven.ErrTrackNotFound)
}

func TestTrackRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrackRepo(db)
	ctx := context.Background()

	first := makeTrack("100001")
	second := makeTrack("100002")
	second.AddedAt = first.AddedAt.Add(time.Hour)

	_, err := repo.Add(ctx, second)
	require.NoError(t, err)
	_, err = repo.Add(ctx, first)
	require.NoError(t, err)

	tracks, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	// Oldest first.
	assert.Equal(t, "100001", tracks[0].ItemID)
	assert.Equal(t, "100002", tracks[1].ItemID)
}
