package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// testBase keeps listing fixtures deterministic across a test run.
var testBase = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

// listing builds a favorites-origin listing as the API client would map it.
func listing(id string, available int) model.Item {
	item := model.Item{
		ItemID:         id,
		DisplayName:    "Beranek's Bakery (Downtown)",
		StoreName:      "Beranek's Bakery",
		StoreBranch:    "Downtown",
		ItemsAvailable: available,
		Price:          model.Amount{MinorUnits: 499, Decimals: 2, Code: "EUR"},
		OriginalValue:  model.Amount{MinorUnits: 1500, Decimals: 2, Code: "EUR"},
		Origin:         model.ItemOriginFavorites,
		ItemType:       "MAGIC_BAG",
		LastSeenAt:     testBase,
		UpdatedAt:      testBase,
	}
	if available > 0 {
		item.LastAvailableAt = testBase
	}
	return item
}

// pollFixture wires a PollService and its alert pipeline to shared mocks.
type pollFixture struct {
	client    *mockTGTGClient
	items     *mockItemStore
	orders    *mockOrderStore
	snapshots *mockSnapshotStore
	tracks    *mockTrackStore
	settings  *mockSettingsStore
	webhooks  *mockWebhookStore
	mutes     *mockMuteStore
	notifier  *mockNotifier
	svc       *application.PollService
}

// newPollFixture builds the fixture. A nil client simulates the state before
// the first login.
func newPollFixture(client *mockTGTGClient) *pollFixture {
	f := &pollFixture{
		client:    client,
		items:     newMockItemStore(),
		orders:    &mockOrderStore{},
		snapshots: &mockSnapshotStore{},
		tracks:    newMockTrackStore(),
		settings:  newMockSettingsStore(),
		webhooks:  &mockWebhookStore{},
		mutes:     newMockMuteStore(),
		notifier:  &mockNotifier{},
	}
	f.rebuild()
	return f
}

// rebuild recreates the service, picking up stores a test has replaced.
func (f *pollFixture) rebuild() {
	provider := application.NewClientProvider(nil)
	if f.client != nil {
		provider.Replace(f.client)
	}
	alerts := application.NewAlertService(f.webhooks, f.mutes, f.tracks, f.settings, f.items, f.notifier)
	f.svc = application.NewPollService(
		provider, f.items, f.orders, f.snapshots, f.tracks, f.settings,
		alerts, time.Hour, 14*24*time.Hour,
	)
}

// start launches the poll loop and waits for the initial cycle to finish.
// The returned stop function cancels the loop and waits for it to exit.
func (f *pollFixture) start(t *testing.T) (context.Context, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return !f.svc.Status().LastPollAt.IsZero()
	}, 2*time.Second, 5*time.Millisecond, "initial poll cycle did not complete")

	return ctx, func() {
		cancel()
		<-done
	}
}

// runCycle runs exactly one poll cycle and shuts the loop down.
func (f *pollFixture) runCycle(t *testing.T) {
	t.Helper()
	_, stop := f.start(t)
	stop()
}

func (f *pollFixture) clearRecorded() {
	f.items.mu.Lock()
	f.items.upserts = nil
	f.items.staleCalls = nil
	f.items.mu.Unlock()

	f.snapshots.mu.Lock()
	f.snapshots.appends = nil
	f.snapshots.mu.Unlock()

	f.notifier.mu.Lock()
	f.notifier.sent = nil
	f.notifier.mu.Unlock()
}

func TestPollOnce_StoresFavorites(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{
		favorites: []model.Item{listing("item-1", 3), listing("item-2", 0)},
	})

	f.runCycle(t)

	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 2)
	assert.Equal(t, "item-1", upserts[0].ItemID)
	assert.Equal(t, "item-2", upserts[1].ItemID)
	// First sighting backfills FirstSeenAt from the fetch timestamp.
	assert.Equal(t, testBase, upserts[0].FirstSeenAt)

	// Both listings get an initial history point.
	appends := f.snapshots.recordedAppends()
	require.Len(t, appends, 2)
	assert.Equal(t, "item-1", appends[0].ItemID)
	assert.Equal(t, 3, appends[0].ItemsAvailable)
	assert.Equal(t, int64(499), appends[0].PriceMinorUnits)

	// Listings that dropped out of the feed are cleaned up once per cycle.
	require.Len(t, f.items.staleCalls, 1)
	assert.WithinDuration(t, time.Now(), f.items.staleCalls[0], 2*time.Second)

	// Orders are replaced and history pruned every cycle.
	assert.Len(t, f.orders.replaces, 1)
	require.Len(t, f.snapshots.prunes, 1)
	assert.WithinDuration(t, time.Now().Add(-14*24*time.Hour), f.snapshots.prunes[0], 2*time.Second)

	status := f.svc.Status()
	assert.Equal(t, 2, status.ListingCount)
	assert.Zero(t, status.LastErrors)
}

func TestPollOnce_SkipUnchanged(t *testing.T) {
	item := listing("item-1", 2)
	item.FirstSeenAt = testBase.Add(-24 * time.Hour)

	f := newPollFixture(&mockTGTGClient{favorites: []model.Item{listing("item-1", 2)}})
	f.items = newMockItemStore(item)
	f.rebuild()

	f.runCycle(t)

	// The upsert still runs so LastSeenAt advances, but nothing changed, so
	// no history point and no alert.
	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, item.FirstSeenAt, upserts[0].FirstSeenAt)
	assert.Empty(t, f.snapshots.recordedAppends())
	assert.Empty(t, f.notifier.delivered())
}

func TestPollOnce_AppendsSnapshotOnStockChange(t *testing.T) {
	stored := listing("item-1", 0)
	stored.LastSeenAt = testBase.Add(-time.Hour)

	f := newPollFixture(&mockTGTGClient{favorites: []model.Item{listing("item-1", 3)}})
	f.items = newMockItemStore(stored)
	f.rebuild()

	f.runCycle(t)

	appends := f.snapshots.recordedAppends()
	require.Len(t, appends, 1)
	assert.Equal(t, 3, appends[0].ItemsAvailable)
}

func TestPollOnce_PreservesLastAvailableOnSellOut(t *testing.T) {
	stored := listing("item-1", 3)
	stored.FirstSeenAt = testBase.Add(-24 * time.Hour)
	stored.LastAvailableAt = testBase.Add(-2 * time.Hour)

	f := newPollFixture(&mockTGTGClient{favorites: []model.Item{listing("item-1", 0)}})
	f.items = newMockItemStore(stored)
	f.rebuild()

	f.runCycle(t)

	// A sold-out observation carries no availability stamp; the stored one
	// survives so the panel can show when bags were last on offer.
	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, stored.LastAvailableAt, upserts[0].LastAvailableAt)
}

func TestPollOnce_BecameAvailableAlert(t *testing.T) {
	stored := listing("item-1", 0)

	f := newPollFixture(&mockTGTGClient{favorites: []model.Item{listing("item-1", 3)}})
	f.items = newMockItemStore(stored)
	f.webhooks.hooks = []model.Webhook{{Name: "ha", URL: "http://ha.local/hook", Enabled: true}}
	f.rebuild()

	f.runCycle(t)

	delivered := f.notifier.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, model.EventItemAvailable, delivered[0].Event.Type)
	assert.Equal(t, "item-1", delivered[0].Event.Item.ItemID)
	assert.Contains(t, delivered[0].Event.Message, "3 bags")
	assert.Contains(t, delivered[0].Event.Message, "4.99 EUR")
	assert.Equal(t, "ha", delivered[0].Hook.Name)
}

func TestPollOnce_SoldOutAlertRequiresOptIn(t *testing.T) {
	newFixture := func() *pollFixture {
		stored := listing("item-1", 2)
		f := newPollFixture(&mockTGTGClient{favorites: []model.Item{listing("item-1", 0)}})
		f.items = newMockItemStore(stored)
		f.webhooks.hooks = []model.Webhook{{Name: "ha", URL: "http://ha.local/hook", Enabled: true}}
		f.rebuild()
		return f
	}

	t.Run("suppressed by default", func(t *testing.T) {
		f := newFixture()
		f.runCycle(t)
		assert.Empty(t, f.notifier.delivered())
	})

	t.Run("delivered when enabled", func(t *testing.T) {
		f := newFixture()
		cfg := model.DefaultSettings()
		cfg.NotifyOnSoldOut = true
		f.settings.settings = cfg

		f.runCycle(t)

		delivered := f.notifier.delivered()
		require.Len(t, delivered, 1)
		assert.Equal(t, model.EventItemSoldOut, delivered[0].Event.Type)
		assert.Contains(t, delivered[0].Event.Message, "sold out")
	})
}

func TestPollOnce_FetchesTrackedListings(t *testing.T) {
	manual := listing("item-9", 1)
	manual.Origin = model.ItemOriginManual

	f := newPollFixture(&mockTGTGClient{
		favorites: []model.Item{listing("item-1", 2)},
		itemsByID: map[string]model.Item{"item-9": manual},
	})
	f.tracks = newMockTrackStore(
		model.Track{ItemID: "item-9", Notify: true},
		model.Track{ItemID: "item-1", Notify: true}, // already covered by the feed
	)
	f.rebuild()

	f.runCycle(t)

	fetched := f.client.fetched()
	assert.Contains(t, fetched, "item-9")
	assert.NotContains(t, fetched, "item-1", "feed listings must not be fetched twice")

	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 2)
	assert.Equal(t, 2, f.svc.Status().ListingCount)
}

func TestPollOnce_FavoritesDisabled(t *testing.T) {
	manual := listing("item-9", 1)
	manual.Origin = model.ItemOriginManual

	f := newPollFixture(&mockTGTGClient{
		favorites: []model.Item{listing("item-1", 2)},
		itemsByID: map[string]model.Item{"item-9": manual},
	})
	f.tracks = newMockTrackStore(model.Track{ItemID: "item-9", Notify: true})
	cfg := model.DefaultSettings()
	cfg.WatchFavorites = false
	f.settings.settings = cfg
	f.rebuild()

	f.runCycle(t)

	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, "item-9", upserts[0].ItemID)
	assert.Empty(t, f.items.staleCalls, "stale cleanup only runs with the favorites feed")
}

func TestPollOnce_FavoritesErrorSkipsCleanup(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{favoritesErr: errors.New("upstream boom")})

	f.runCycle(t)

	assert.Empty(t, f.items.staleCalls, "a failed fetch must not wipe the stored favorites")
	assert.Equal(t, 1, f.svc.Status().LastErrors)
}

func TestPollOnce_MissingTrackedListingSkipped(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{favorites: []model.Item{}})
	f.tracks = newMockTrackStore(model.Track{ItemID: "item-gone", Notify: true})
	f.rebuild()

	f.runCycle(t)

	// Unknown IDs are logged and skipped, not counted as cycle errors.
	assert.Empty(t, f.items.recordedUpserts())
	assert.Zero(t, f.svc.Status().LastErrors)
}

func TestPollOnce_PickupChangeAlert(t *testing.T) {
	item := listing("item-1", 1)
	moved := model.PickupWindow{Start: testBase.Add(3 * time.Hour), End: testBase.Add(4 * time.Hour)}

	f := newPollFixture(&mockTGTGClient{
		favorites: []model.Item{listing("item-1", 1)},
		orders: []model.Order{{
			OrderID:             "order-5",
			ItemID:              "item-1",
			Quantity:            2,
			Pickup:              moved,
			PickupWindowChanged: true,
			StoreName:           "Beranek's Bakery",
		}},
	})
	f.items = newMockItemStore(item)
	f.orders.stored = []model.Order{{
		OrderID:  "order-5",
		ItemID:   "item-1",
		Quantity: 2,
		Pickup:   model.PickupWindow{Start: testBase.Add(time.Hour), End: testBase.Add(2 * time.Hour)},
	}}
	f.webhooks.hooks = []model.Webhook{{Name: "ha", URL: "http://ha.local/hook", Enabled: true}}
	f.rebuild()

	f.runCycle(t)

	var changeEvents []model.AlertEvent
	for _, d := range f.notifier.delivered() {
		if d.Event.Type == model.EventPickupWindowChanged {
			changeEvents = append(changeEvents, d.Event)
		}
	}
	require.Len(t, changeEvents, 1)
	assert.Equal(t, "item-1", changeEvents[0].Item.ItemID)
	assert.True(t, changeEvents[0].Signals.PickupChanged)

	require.Len(t, f.orders.replaces, 1)
	require.Len(t, f.orders.replaces[0], 1)
	assert.Equal(t, "order-5", f.orders.replaces[0][0].OrderID)
}

func TestPollOnce_TierClassification(t *testing.T) {
	openWindow := model.PickupWindow{Start: testBase.Add(-time.Hour), End: time.Now().Add(2 * time.Hour)}
	farWindow := model.PickupWindow{Start: time.Now().Add(4 * time.Hour), End: time.Now().Add(5 * time.Hour)}

	tests := []struct {
		name      string
		favorites []model.Item
		wantTier  application.ActivityTier
	}{
		{
			name: "available listing inside pickup window is hot",
			favorites: func() []model.Item {
				item := listing("item-1", 2)
				item.Pickup = openWindow
				return []model.Item{item}
			}(),
			wantTier: application.TierHot,
		},
		{
			name: "available listing with distant pickup is active",
			favorites: func() []model.Item {
				item := listing("item-1", 2)
				item.Pickup = farWindow
				return []model.Item{item}
			}(),
			wantTier: application.TierActive,
		},
		{
			name: "sold out inside sales window is warm",
			favorites: func() []model.Item {
				item := listing("item-1", 0)
				item.InSalesWindow = true
				return []model.Item{item}
			}(),
			wantTier: application.TierWarm,
		},
		{
			name:      "no listings is stale",
			favorites: []model.Item{},
			wantTier:  application.TierStale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPollFixture(&mockTGTGClient{favorites: tt.favorites})
			f.runCycle(t)
			assert.Equal(t, tt.wantTier, f.svc.Status().Tier)
		})
	}
}

func TestRefreshItem(t *testing.T) {
	stored := listing("item-7", 0)

	refreshed := listing("item-7", 2)
	refreshed.Origin = model.ItemOriginManual // single-listing fetches report manual origin

	f := newPollFixture(&mockTGTGClient{
		itemsByID: map[string]model.Item{"item-7": refreshed},
	})
	f.items = newMockItemStore(stored)
	f.webhooks.hooks = []model.Webhook{{Name: "ha", URL: "http://ha.local/hook", Enabled: true}}
	f.rebuild()

	ctx, stop := f.start(t)
	defer stop()
	f.clearRecorded()

	require.NoError(t, f.svc.RefreshItem(ctx, "item-7"))

	assert.Contains(t, f.client.fetched(), "item-7")

	upserts := f.items.recordedUpserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, model.ItemOriginFavorites, upserts[0].Origin,
		"refresh must keep the stored origin")

	delivered := f.notifier.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, model.EventItemAvailable, delivered[0].Event.Type)
}

func TestRefreshItem_UnknownListing(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{})

	ctx, stop := f.start(t)
	defer stop()

	err := f.svc.RefreshItem(ctx, "item-nope")
	require.Error(t, err)
	assert.ErrorContains(t, err, "item-nope")
}

func TestRefreshAll_RunsFullCycle(t *testing.T) {
	f := newPollFixture(&mockTGTGClient{favorites: []model.Item{listing("item-1", 1)}})

	ctx, stop := f.start(t)
	defer stop()
	f.clearRecorded()

	require.NoError(t, f.svc.RefreshAll(ctx))

	assert.Len(t, f.items.recordedUpserts(), 1)
	assert.Len(t, f.items.staleCalls, 1)
}

func TestPoll_NoCredentials(t *testing.T) {
	f := newPollFixture(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Start(ctx)
		close(done)
	}()

	// The loop is alive but skips cycles; a single-listing refresh reports
	// the missing login outright.
	err := f.svc.RefreshItem(ctx, "item-1")
	require.ErrorIs(t, err, application.ErrNoCredentials)

	cancel()
	<-done

	assert.Empty(t, f.items.recordedUpserts())
	assert.True(t, f.svc.Status().LastPollAt.IsZero())
}
