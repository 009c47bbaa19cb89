package sqlite

import (
	"context"
	"testing"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookRepo_AddAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)
	ctx := context.Background()

	hook, err := repo.Add(ctx, model.Webhook{
		Name:    "home-assistant",
		URL:     "http://homeassistant.local:8123/api/webhook/tgtg",
		Secret:  "shh",
		Enabled: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, hook.ID)
	assert.False(t, hook.AddedAt.IsZero())

	hooks, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "home-assistant", hooks[0].Name)
	assert.Equal(t, "shh", hooks[0].Secret)
	assert.True(t, hooks[0].Enabled)
}

func TestWebhookRepo_Add_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, model.Webhook{Name: "ntfy", URL: "https://ntfy.sh/tgtg", Enabled: true})
	require.NoError(t, err)

	_, err = repo.Add(ctx, model.Webhook{Name: "ntfy", URL: "https://ntfy.sh/other", Enabled: true})
	assert.ErrorIs(t, err, driven.ErrWebhookAlreadyExists)
}

func TestWebhookRepo_ListEnabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, model.Webhook{Name: "b-disabled", URL: "https://example.com/b", Enabled: false})
	require.NoError(t, err)
	_, err = repo.Add(ctx, model.Webhook{Name: "a-enabled", URL: "https://example.com/a", Enabled: true})
	require.NoError(t, err)

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "a-enabled", enabled[0].Name)
}

func TestWebhookRepo_SetEnabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, model.Webhook{Name: "ntfy", URL: "https://ntfy.sh/tgtg", Enabled: true})
	require.NoError(t, err)

	require.NoError(t, repo.SetEnabled(ctx, "ntfy", false))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestWebhookRepo_SetEnabled_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)

	err := repo.SetEnabled(context.Background(), "missing", true)
	assert.ErrorIs(t, err, driven.ErrWebhookNotFound)
}

func TestWebhookRepo_Remove_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)

	err := repo.Remove(context.Background(), "missing")
	assert.ErrorIs(t, err, driven.ErrWebhookNotFound)
}
