package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

type trackFixture struct {
	client *mockTGTGClient
	items  *mockItemStore
	tracks *mockTrackStore
	svc    *application.TrackService
}

func newTrackFixture(client *mockTGTGClient) *trackFixture {
	f := &trackFixture{
		client: client,
		items:  newMockItemStore(),
		tracks: newMockTrackStore(),
	}
	provider := application.NewClientProvider(nil)
	if client != nil {
		provider.Replace(client)
	}
	f.svc = application.NewTrackService(provider, f.items, f.tracks)
	return f
}

func TestTrack_FetchesAndStores(t *testing.T) {
	f := newTrackFixture(&mockTGTGClient{
		itemsByID: map[string]model.Item{"item-9": listing("item-9", 3)},
	})

	track, err := f.svc.Track(context.Background(), "item-9", "Friday bread", 2, true)
	require.NoError(t, err)

	assert.Equal(t, "item-9", track.ItemID)
	assert.Equal(t, "Friday bread", track.Label)
	assert.Equal(t, 2, track.MinQuantity)
	assert.True(t, track.Notify)
	assert.NotZero(t, track.ID)
	assert.WithinDuration(t, time.Now(), track.AddedAt, 2*time.Second)

	assert.Equal(t, []string{"item-9"}, f.client.fetched())

	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, model.ItemOriginManual, upserts[0].Origin)
	assert.Equal(t, upserts[0].LastSeenAt, upserts[0].FirstSeenAt)
}

func TestTrack_PreservesFirstSeen(t *testing.T) {
	firstSeen := testBase.Add(-72 * time.Hour)
	f := newTrackFixture(&mockTGTGClient{
		itemsByID: map[string]model.Item{"item-1": listing("item-1", 3)},
	})
	known := listing("item-1", 2)
	known.FirstSeenAt = firstSeen
	f.items.stored["item-1"] = known

	_, err := f.svc.Track(context.Background(), "item-1", "", 0, true)
	require.NoError(t, err)

	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, firstSeen, upserts[0].FirstSeenAt,
		"tracking a known listing must not reset its first sighting")
	assert.Equal(t, model.ItemOriginManual, upserts[0].Origin)
}

func TestTrack_UnknownListing(t *testing.T) {
	f := newTrackFixture(&mockTGTGClient{})

	_, err := f.svc.Track(context.Background(), "item-nope", "", 0, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrItemNotFound)

	assert.Empty(t, f.items.recordedUpserts())
	assert.Empty(t, f.tracks.adds)
}

func TestTrack_AlreadyTracked(t *testing.T) {
	f := newTrackFixture(&mockTGTGClient{
		itemsByID: map[string]model.Item{"item-1": listing("item-1", 3)},
	})
	f.tracks.tracks["item-1"] = model.Track{ID: 7, ItemID: "item-1"}

	_, err := f.svc.Track(context.Background(), "item-1", "", 0, true)
	assert.ErrorIs(t, err, driven.ErrTrackAlreadyExists)
}

func TestTrack_NoCredentials(t *testing.T) {
	f := newTrackFixture(nil)

	_, err := f.svc.Track(context.Background(), "item-1", "", 0, true)
	assert.ErrorIs(t, err, application.ErrNoCredentials)
}

func TestUntrack_RemovesManualListing(t *testing.T) {
	f := newTrackFixture(nil)
	f.tracks.tracks["item-9"] = model.Track{ID: 7, ItemID: "item-9"}
	manual := listing("item-9", 0)
	manual.Origin = model.ItemOriginManual
	f.items.stored["item-9"] = manual

	require.NoError(t, f.svc.Untrack(context.Background(), "item-9"))

	assert.Equal(t, []string{"item-9"}, f.tracks.removes)
	assert.Equal(t, []string{"item-9"}, f.items.deletes)
}

func TestUntrack_KeepsFavoritesListing(t *testing.T) {
	f := newTrackFixture(nil)
	f.tracks.tracks["item-1"] = model.Track{ID: 7, ItemID: "item-1"}
	f.items.stored["item-1"] = listing("item-1", 2)

	require.NoError(t, f.svc.Untrack(context.Background(), "item-1"))

	assert.Equal(t, []string{"item-1"}, f.tracks.removes)
	assert.Empty(t, f.items.deletes,
		"a favorites listing keeps polling with the feed after untracking")
}

func TestUntrack_NotTracked(t *testing.T) {
	f := newTrackFixture(nil)

	err := f.svc.Untrack(context.Background(), "item-1")
	assert.ErrorIs(t, err, driven.ErrTrackNotFound)
	assert.Empty(t, f.items.deletes)
}

func TestTrackUpdate_PassesThrough(t *testing.T) {
	f := newTrackFixture(nil)
	f.tracks.tracks["item-1"] = model.Track{ID: 7, ItemID: "item-1"}

	updated := model.Track{ID: 7, ItemID: "item-1", Label: "Weekend bag", MinQuantity: 4}
	require.NoError(t, f.svc.Update(context.Background(), updated))
	require.Len(t, f.tracks.updates, 1)
	assert.Equal(t, updated, f.tracks.updates[0])

	err := f.svc.Update(context.Background(), model.Track{ItemID: "item-2"})
	assert.ErrorIs(t, err, driven.ErrTrackNotFound)
}
