package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuteRepo_MuteAndIsMuted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMuteRepo(db)
	ctx := context.Background()

	muted, err := repo.IsMuted(ctx, "100001")
	require.NoError(t, err)
	assert.False(t, muted)

	require.NoError(t, repo.Mute(ctx, "100001"))

	muted, err = repo.IsMuted(ctx, "100001")
	require.NoError(t, err)
	assert.True(t, muted)
}

func TestMuteRepo_Mute_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMuteRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Mute(ctx, "100001"))
	require.NoError(t, repo.Mute(ctx, "100001"))

	muted, err := repo.ListMuted(ctx)
	require.NoError(t, err)
	assert.Len(t, muted, 1)
}

func TestMuteRepo_Unmute(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMuteRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Mute(ctx, "100001"))
	require.NoError(t, repo.Unmute(ctx, "100001"))

	muted, err := repo.IsMuted(ctx, "100001")
	require.NoError(t, err)
	assert.False(t, muted)

	// Unmuting a listing that is not muted is a no-op.
	require.NoError(t, repo.Unmute(ctx, "100001"))
}

func TestMuteRepo_ListMuted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMuteRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Mute(ctx, "100001"))
	require.NoError(t, repo.Mute(ctx, "100002"))

	muted, err := repo.ListMuted(ctx)
	require.NoError(t, err)
	require.Len(t, muted, 2)
	for _, m := range muted {
		assert.False(t, m.MutedAt.IsZero())
	}
}
