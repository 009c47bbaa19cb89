// Package application contains use-case orchestration services. Services
// depend only on domain models and port interfaces, never on adapters.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// ErrNoCredentials is returned by on-demand refreshes when no API client is
// available because nobody has logged in yet.
var ErrNoCredentials = errors.New("no credentials configured, login first")

// refreshRequest asks the poll loop to re-fetch on demand. An empty itemID
// requests a full cycle; otherwise only the named listing is refreshed.
type refreshRequest struct {
	itemID string
	done   chan error
}

// PollStatus is a point-in-time view of the poll loop, used by the health
// endpoint, the metrics collector, and the panel header.
type PollStatus struct {
	LastPollAt   time.Time
	LastDuration time.Duration
	LastErrors   int // failed fetch or store operations in the most recent cycle
	ListingCount int
	Tier         ActivityTier

	// Cumulative counts since startup.
	CyclesClean  uint64
	CyclesFailed uint64 // cycles with at least one error
}

// PollService periodically fetches the favorites feed, explicitly tracked
// listings, and active orders, persists them, records availability history,
// and hands state transitions to the alert service. The polling cadence
// adapts to how close the watched listings are to actionable moments.
type PollService struct {
	provider      *ClientProvider
	itemStore     driven.ItemStore
	orderStore    driven.OrderStore
	snapshotStore driven.SnapshotStore
	trackStore    driven.TrackStore
	settingsStore driven.SettingsStore
	alerts        *AlertService
	baseInterval  time.Duration
	retention     time.Duration
	logger        *slog.Logger
	refreshCh     chan refreshRequest

	mu     sync.Mutex
	status PollStatus
}

// NewPollService creates a new PollService. baseInterval is the idle polling
// cadence; retention bounds how much availability history is kept.
func NewPollService(
	provider *ClientProvider,
	itemStore driven.ItemStore,
	orderStore driven.OrderStore,
	snapshotStore driven.SnapshotStore,
	trackStore driven.TrackStore,
	settingsStore driven.SettingsStore,
	alerts *AlertService,
	baseInterval time.Duration,
	retention time.Duration,
) *PollService {
	return &PollService{
		provider:      provider,
		itemStore:     itemStore,
		orderStore:    orderStore,
		snapshotStore: snapshotStore,
		trackStore:    trackStore,
		settingsStore: settingsStore,
		alerts:        alerts,
		baseInterval:  baseInterval,
		retention:     retention,
		logger:        slog.Default(),
		refreshCh:     make(chan refreshRequest),
		// Idle cadence until the first cycle classifies the listings.
		status: PollStatus{Tier: TierStale},
	}
}

// BaseInterval returns the configured idle polling cadence.
func (s *PollService) BaseInterval() time.Duration {
	return s.baseInterval
}

// Status returns a snapshot of the most recent poll cycle.
func (s *PollService) Status() PollStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start runs the poll loop until ctx is canceled. One cycle runs
// immediately; afterwards the timer re-arms with the adaptive interval
// computed from the listings seen in the previous cycle.
func (s *PollService) Start(ctx context.Context) {
	s.logger.Info("poll service starting", "interval", s.baseInterval, "retention", s.retention)

	s.pollOnce(ctx)

	timer := time.NewTimer(s.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poll service stopping")
			return
		case <-timer.C:
			s.pollOnce(ctx)
			rearm(timer, s.currentInterval())
		case req := <-s.refreshCh:
			req.done <- s.handleRefresh(ctx, req)
			rearm(timer, s.currentInterval())
		}
	}
}

// rearm stops, drains, and resets the poll timer.
func rearm(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// currentInterval resolves the adaptive interval from the last known tier.
func (s *PollService) currentInterval() time.Duration {
	s.mu.Lock()
	tier := s.status.Tier
	s.mu.Unlock()
	return tierInterval(tier, s.baseInterval)
}

// RefreshAll triggers a full poll cycle and waits for it to complete.
func (s *PollService) RefreshAll(ctx context.Context) error {
	return s.requestRefresh(ctx, refreshRequest{done: make(chan error, 1)})
}

// RefreshItem re-fetches a single listing and waits for it to complete.
func (s *PollService) RefreshItem(ctx context.Context, itemID string) error {
	return s.requestRefresh(ctx, refreshRequest{itemID: itemID, done: make(chan error, 1)})
}

// requestRefresh hands a request to the poll loop and waits for the result.
// Returns the ctx error if the loop is not running or the caller gives up.
func (s *PollService) requestRefresh(ctx context.Context, req refreshRequest) error {
	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleRefresh dispatches an on-demand refresh request.
func (s *PollService) handleRefresh(ctx context.Context, req refreshRequest) error {
	if req.itemID == "" {
		s.pollOnce(ctx)
		return nil
	}
	return s.refreshListing(ctx, req.itemID)
}

// pollOnce runs one full cycle: favorites feed, tracked listings, active
// orders, alert dispatch, and history pruning. Each section fails
// independently so one flaky endpoint does not starve the others.
func (s *PollService) pollOnce(ctx context.Context) {
	start := time.Now()

	client := s.provider.Get()
	if client == nil {
		s.logger.Info("no credentials stored, skipping poll cycle")
		return
	}

	cfg, err := s.settingsStore.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("failed to load settings, using defaults", "error", err)
		cfg = model.DefaultSettings()
	}

	stored, err := s.itemStore.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list stored listings", "error", err)
		return
	}
	storedByID := make(map[string]model.Item, len(stored))
	for _, item := range stored {
		storedByID[item.ItemID] = item
	}

	var (
		errCount int
		changed  int
		fetched  = make(map[string]bool)
		seen     []model.Item
		deals    []model.Deal
	)

	// 1. Favorites feed. Listings that dropped out of the feed are removed
	// afterwards, but only when the fetch itself succeeded.
	if cfg.WatchFavorites {
		favorites, err := client.FetchFavorites(ctx)
		switch {
		case errors.Is(err, driven.ErrUnauthorized):
			s.logger.Warn("favorites fetch unauthorized, re-login required")
			errCount++
		case errors.Is(err, driven.ErrBlocked):
			s.logger.Warn("favorites fetch blocked by bot protection, log in again to refresh the cookie")
			errCount++
		case err != nil:
			s.logger.Error("failed to fetch favorites", "error", err)
			errCount++
		default:
			for _, item := range favorites {
				fetched[item.ItemID] = true
				deal, ok, err := s.syncListing(ctx, storedByID, item, start)
				if err != nil {
					s.logger.Error("failed to sync listing", "item_id", item.ItemID, "error", err)
					errCount++
					continue
				}
				seen = append(seen, item)
				if ok {
					changed++
				}
				if deal.Signals.HasAny() {
					deals = append(deals, deal)
				}
			}

			if removed, err := s.itemStore.DeleteStaleFavorites(ctx, start); err != nil {
				s.logger.Error("failed to remove stale favorites", "error", err)
				errCount++
			} else if removed > 0 {
				s.logger.Info("removed listings no longer in favorites", "count", removed)
			}
		}
	}

	// 2. Explicitly tracked listings not already covered by the feed.
	tracks, err := s.trackStore.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list tracks", "error", err)
		errCount++
	}
	for _, track := range tracks {
		if fetched[track.ItemID] {
			continue
		}
		item, err := client.FetchItem(ctx, track.ItemID)
		switch {
		case errors.Is(err, driven.ErrItemNotFound):
			s.logger.Warn("tracked listing no longer exists", "item_id", track.ItemID)
			continue
		case err != nil:
			s.logger.Error("failed to fetch tracked listing", "item_id", track.ItemID, "error", err)
			errCount++
			continue
		}

		fetched[item.ItemID] = true
		deal, ok, err := s.syncListing(ctx, storedByID, *item, start)
		if err != nil {
			s.logger.Error("failed to sync listing", "item_id", item.ItemID, "error", err)
			errCount++
			continue
		}
		seen = append(seen, *item)
		if ok {
			changed++
		}
		if deal.Signals.HasAny() {
			deals = append(deals, deal)
		}
	}

	// 3. Active orders: the endpoint returns the complete set, so stored
	// orders are replaced wholesale. Window moves alert before replacement
	// state is lost.
	previousOrders, err := s.orderStore.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list stored orders", "error", err)
		errCount++
	}
	orders, err := client.FetchActiveOrders(ctx)
	if err != nil {
		s.logger.Error("failed to fetch active orders", "error", err)
		errCount++
	} else {
		if err := s.orderStore.ReplaceAll(ctx, orders); err != nil {
			s.logger.Error("failed to store active orders", "error", err)
			errCount++
		}
		s.alerts.NotifyPickupChanges(ctx, previousOrders, orders)
	}

	// 4. Alert dispatch. Delivery errors are logged by the alert service.
	for _, deal := range deals {
		s.alerts.Dispatch(ctx, deal)
	}

	// 5. History retention.
	if pruned, err := s.snapshotStore.PruneBefore(ctx, start.Add(-s.retention)); err != nil {
		s.logger.Error("failed to prune history", "error", err)
		errCount++
	} else if pruned > 0 {
		s.logger.Debug("pruned history points", "count", pruned)
	}

	tier := classifyListings(seen, time.Now())
	duration := time.Since(start)

	s.mu.Lock()
	s.status.LastPollAt = time.Now()
	s.status.LastDuration = duration
	s.status.LastErrors = errCount
	s.status.ListingCount = len(seen)
	s.status.Tier = tier
	if errCount == 0 {
		s.status.CyclesClean++
	} else {
		s.status.CyclesFailed++
	}
	s.mu.Unlock()

	s.logger.Info("poll cycle complete",
		"listings", len(seen),
		"changed", changed,
		"alerts", len(deals),
		"errors", errCount,
		"tier", tier.String(),
		"duration", duration.Round(time.Millisecond),
	)
}

// syncListing upserts one fetched listing, appends a history point when its
// stock or price moved, and computes the deal signals against the previous
// state. The changed return reports whether any panel-visible field moved.
func (s *PollService) syncListing(ctx context.Context, storedByID map[string]model.Item, item model.Item, now time.Time) (model.Deal, bool, error) {
	var prev *model.Item
	if p, ok := storedByID[item.ItemID]; ok {
		prev = &p
		item.FirstSeenAt = p.FirstSeenAt
		if item.LastAvailableAt.IsZero() {
			item.LastAvailableAt = p.LastAvailableAt
		}
	} else {
		item.FirstSeenAt = item.LastSeenAt
	}

	// The upsert always runs: LastSeenAt must advance every cycle so the
	// stale-favorites cleanup has an accurate view.
	if err := s.itemStore.Upsert(ctx, item); err != nil {
		return model.Deal{}, false, fmt.Errorf("upsert listing %s: %w", item.ItemID, err)
	}

	if prev == nil || snapshotWorthy(*prev, item) {
		snap := model.Snapshot{
			ItemID:          item.ItemID,
			ItemsAvailable:  item.ItemsAvailable,
			PriceMinorUnits: item.Price.MinorUnits,
			CapturedAt:      now,
		}
		if err := s.snapshotStore.Append(ctx, snap); err != nil {
			s.logger.Warn("failed to record history point", "item_id", item.ItemID, "error", err)
		}
	}

	signals := s.alerts.SignalsFor(ctx, prev, item, now)
	deal := model.Deal{Item: item, Signals: signals}
	return deal, prev == nil || listingChanged(*prev, item), nil
}

// refreshListing re-fetches a single listing on demand and dispatches any
// resulting alert immediately.
func (s *PollService) refreshListing(ctx context.Context, itemID string) error {
	client := s.provider.Get()
	if client == nil {
		return ErrNoCredentials
	}

	item, err := client.FetchItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("fetch listing %s: %w", itemID, err)
	}

	storedByID := make(map[string]model.Item, 1)
	prev, err := s.itemStore.GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load stored listing %s: %w", itemID, err)
	}
	if prev != nil {
		// A single-listing fetch reports manual origin; keep the stored one
		// so a favorites listing stays eligible for stale cleanup.
		item.Origin = prev.Origin
		storedByID[itemID] = *prev
	}

	deal, _, err := s.syncListing(ctx, storedByID, *item, time.Now())
	if err != nil {
		return err
	}
	if deal.Signals.HasAny() {
		s.alerts.Dispatch(ctx, deal)
	}
	return nil
}

// listingChanged reports whether any field surfaced on the panel moved
// between two polls of the same listing.
func listingChanged(prev, curr model.Item) bool {
	return prev.ItemsAvailable != curr.ItemsAvailable ||
		prev.Price != curr.Price ||
		prev.OriginalValue != curr.OriginalValue ||
		!prev.Pickup.Equal(curr.Pickup) ||
		!prev.SoldOutAt.Equal(curr.SoldOutAt) ||
		prev.InSalesWindow != curr.InSalesWindow ||
		prev.Favorite != curr.Favorite ||
		prev.DisplayName != curr.DisplayName
}

// snapshotWorthy reports whether the history series needs a new point.
// Only stock and price movements are recorded.
func snapshotWorthy(prev, curr model.Item) bool {
	return prev.ItemsAvailable != curr.ItemsAvailable ||
		prev.Price.MinorUnits != curr.Price.MinorUnits
}
