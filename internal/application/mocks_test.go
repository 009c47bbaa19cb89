package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Mock implementations shared across the service tests. Stores serve a
// static pre-seeded view and record mutating calls without applying them,
// so each poll cycle observes the same starting state.

type mockTGTGClient struct {
	mu           sync.Mutex
	favorites    []model.Item
	favoritesErr error
	itemsByID    map[string]model.Item
	orders       []model.Order
	ordersErr    error
	fetchedItems []string

	startAuth func(ctx context.Context, email string) (string, error)
	pollAuth  func(ctx context.Context, email, pollingID string) (*model.TokenSet, error)
}

func (m *mockTGTGClient) StartAuthByEmail(ctx context.Context, email string) (string, error) {
	if m.startAuth == nil {
		return "", errors.New("startAuth not configured")
	}
	return m.startAuth(ctx, email)
}

func (m *mockTGTGClient) PollAuthByRequestPollingID(ctx context.Context, email, pollingID string) (*model.TokenSet, error) {
	if m.pollAuth == nil {
		return nil, errors.New("pollAuth not configured")
	}
	return m.pollAuth(ctx, email, pollingID)
}

func (m *mockTGTGClient) RefreshToken(_ context.Context, _ model.TokenSet) (*model.TokenSet, error) {
	return nil, errors.New("refresh not configured")
}

func (m *mockTGTGClient) FetchFavorites(_ context.Context) ([]model.Item, error) {
	return m.favorites, m.favoritesErr
}

func (m *mockTGTGClient) FetchItem(_ context.Context, itemID string) (*model.Item, error) {
	m.mu.Lock()
	m.fetchedItems = append(m.fetchedItems, itemID)
	m.mu.Unlock()

	item, ok := m.itemsByID[itemID]
	if !ok {
		return nil, driven.ErrItemNotFound
	}
	return &item, nil
}

func (m *mockTGTGClient) FetchActiveOrders(_ context.Context) ([]model.Order, error) {
	return m.orders, m.ordersErr
}

func (m *mockTGTGClient) fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetchedItems...)
}

type mockItemStore struct {
	mu         sync.Mutex
	stored     map[string]model.Item
	upserts    []model.Item
	deletes    []string
	staleCalls []time.Time
	upsertErr  error
}

func newMockItemStore(items ...model.Item) *mockItemStore {
	s := &mockItemStore{stored: make(map[string]model.Item)}
	for _, item := range items {
		s.stored[item.ItemID] = item
	}
	return s
}

func (m *mockItemStore) Upsert(_ context.Context, item model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, item)
	return nil
}

func (m *mockItemStore) GetByID(_ context.Context, itemID string) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.stored[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockItemStore) ListAll(_ context.Context) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.Item, 0, len(m.stored))
	for _, item := range m.stored {
		items = append(items, item)
	}
	return items, nil
}

func (m *mockItemStore) ListAvailable(_ context.Context) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.Item
	for _, item := range m.stored {
		if item.ItemsAvailable > 0 {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockItemStore) Delete(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, itemID)
	return nil
}

func (m *mockItemStore) DeleteStaleFavorites(_ context.Context, seenBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleCalls = append(m.staleCalls, seenBefore)
	var removed int64
	for _, item := range m.stored {
		if item.Origin == model.ItemOriginFavorites && item.LastSeenAt.Before(seenBefore) {
			removed++
		}
	}
	return removed, nil
}

func (m *mockItemStore) recordedUpserts() []model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Item(nil), m.upserts...)
}

type mockOrderStore struct {
	mu       sync.Mutex
	stored   []model.Order
	replaces [][]model.Order
}

func (m *mockOrderStore) ReplaceAll(_ context.Context, orders []model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces = append(m.replaces, orders)
	return nil
}

func (m *mockOrderStore) ListAll(_ context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Order(nil), m.stored...), nil
}

func (m *mockOrderStore) ListByItem(_ context.Context, itemID string) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []model.Order
	for _, o := range m.stored {
		if o.ItemID == itemID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

type mockSnapshotStore struct {
	mu      sync.Mutex
	stored  []model.Snapshot
	appends []model.Snapshot
	prunes  []time.Time
}

func (m *mockSnapshotStore) Append(_ context.Context, snapshot model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends = append(m.appends, snapshot)
	return nil
}

func (m *mockSnapshotStore) Latest(_ context.Context, itemID string) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.stored) - 1; i >= 0; i-- {
		if m.stored[i].ItemID == itemID {
			return &m.stored[i], nil
		}
	}
	return nil, nil
}

func (m *mockSnapshotStore) ListByItem(_ context.Context, itemID string, since time.Time) ([]model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var snapshots []model.Snapshot
	for _, s := range m.stored {
		if s.ItemID == itemID && !s.CapturedAt.Before(since) {
			snapshots = append(snapshots, s)
		}
	}
	return snapshots, nil
}

func (m *mockSnapshotStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunes = append(m.prunes, cutoff)
	return 0, nil
}

func (m *mockSnapshotStore) recordedAppends() []model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Snapshot(nil), m.appends...)
}

type mockTrackStore struct {
	mu      sync.Mutex
	tracks  map[string]model.Track
	adds    []model.Track
	removes []string
	updates []model.Track
	nextID  int64
}

func newMockTrackStore(tracks ...model.Track) *mockTrackStore {
	s := &mockTrackStore{tracks: make(map[string]model.Track), nextID: 100}
	for _, track := range tracks {
		s.tracks[track.ItemID] = track
	}
	return s
}

func (m *mockTrackStore) Add(_ context.Context, track model.Track) (model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tracks[track.ItemID]; exists {
		return model.Track{}, driven.ErrTrackAlreadyExists
	}
	m.nextID++
	track.ID = m.nextID
	m.adds = append(m.adds, track)
	return track, nil
}

func (m *mockTrackStore) Remove(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tracks[itemID]; !exists {
		return driven.ErrTrackNotFound
	}
	m.removes = append(m.removes, itemID)
	return nil
}

func (m *mockTrackStore) Update(_ context.Context, track model.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tracks[track.ItemID]; !exists {
		return driven.ErrTrackNotFound
	}
	m.updates = append(m.updates, track)
	return nil
}

func (m *mockTrackStore) GetByItemID(_ context.Context, itemID string) (*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	track, ok := m.tracks[itemID]
	if !ok {
		return nil, nil
	}
	return &track, nil
}

func (m *mockTrackStore) ListAll(_ context.Context) ([]model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tracks := make([]model.Track, 0, len(m.tracks))
	for _, track := range m.tracks {
		tracks = append(tracks, track)
	}
	return tracks, nil
}

type mockSettingsStore struct {
	mu       sync.Mutex
	settings model.Settings
	err      error
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{settings: model.DefaultSettings()}
}

func (m *mockSettingsStore) GetSettings(_ context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, m.err
}

func (m *mockSettingsStore) SetSettings(_ context.Context, settings model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	return nil
}

type mockWebhookStore struct {
	hooks []model.Webhook
}

func (m *mockWebhookStore) Add(_ context.Context, hook model.Webhook) (model.Webhook, error) {
	m.hooks = append(m.hooks, hook)
	return hook, nil
}

func (m *mockWebhookStore) Remove(_ context.Context, _ string) error {
	return nil
}

func (m *mockWebhookStore) SetEnabled(_ context.Context, _ string, _ bool) error {
	return nil
}

func (m *mockWebhookStore) ListAll(_ context.Context) ([]model.Webhook, error) {
	return m.hooks, nil
}

func (m *mockWebhookStore) ListEnabled(_ context.Context) ([]model.Webhook, error) {
	var enabled []model.Webhook
	for _, hook := range m.hooks {
		if hook.Enabled {
			enabled = append(enabled, hook)
		}
	}
	return enabled, nil
}

type mockMuteStore struct {
	mu    sync.Mutex
	muted map[string]bool
}

func newMockMuteStore(itemIDs ...string) *mockMuteStore {
	s := &mockMuteStore{muted: make(map[string]bool)}
	for _, id := range itemIDs {
		s.muted[id] = true
	}
	return s
}

func (m *mockMuteStore) Mute(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted[itemID] = true
	return nil
}

func (m *mockMuteStore) Unmute(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.muted, itemID)
	return nil
}

func (m *mockMuteStore) IsMuted(_ context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted[itemID], nil
}

func (m *mockMuteStore) ListMuted(_ context.Context) ([]model.MutedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.MutedItem
	for id := range m.muted {
		items = append(items, model.MutedItem{ItemID: id})
	}
	return items, nil
}

type sentAlert struct {
	Hook  model.Webhook
	Event model.AlertEvent
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentAlert
	err  error
}

func (m *mockNotifier) Send(_ context.Context, hook model.Webhook, event model.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentAlert{Hook: hook, Event: event})
	return m.err
}

func (m *mockNotifier) delivered() []sentAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentAlert(nil), m.sent...)
}

type mockCredentialStore struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
	getErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: make(map[string]string)}
}

func (m *mockCredentialStore) Set(_ context.Context, service, key, plaintext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[service+"/"+key] = plaintext
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[service+"/"+key], nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var creds []model.Credential
	for key, value := range m.values {
		creds = append(creds, model.Credential{Service: key, Value: value})
	}
	return creds, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, service+"/"+key)
	return nil
}

func (m *mockCredentialStore) get(service, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[service+"/"+key]
}
