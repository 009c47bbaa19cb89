package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// TrackService manages explicitly tracked listings. Tracking validates the
// item ID against the live API and stores an initial listing row, so the
// panel shows the new entry before the next poll cycle.
type TrackService struct {
	provider   *ClientProvider
	itemStore  driven.ItemStore
	trackStore driven.TrackStore
	logger     *slog.Logger
}

// NewTrackService creates a new TrackService with the required dependencies.
func NewTrackService(provider *ClientProvider, itemStore driven.ItemStore, trackStore driven.TrackStore) *TrackService {
	return &TrackService{
		provider:   provider,
		itemStore:  itemStore,
		trackStore: trackStore,
		logger:     slog.Default(),
	}
}

// Track starts watching a listing by ID. Returns driven.ErrItemNotFound when
// the API does not know the ID, driven.ErrTrackAlreadyExists when it is
// already tracked, and ErrNoCredentials before the first login.
func (s *TrackService) Track(ctx context.Context, itemID, label string, minQuantity int, notify bool) (*model.Track, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoCredentials
	}

	item, err := client.FetchItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", itemID, err)
	}

	// Pin the listing as manual even if it is also a favorite: tracked
	// listings must survive the stale-favorites cleanup.
	item.Origin = model.ItemOriginManual
	if prev, err := s.itemStore.GetByID(ctx, itemID); err == nil && prev != nil {
		item.FirstSeenAt = prev.FirstSeenAt
		if item.LastAvailableAt.IsZero() {
			item.LastAvailableAt = prev.LastAvailableAt
		}
	} else {
		item.FirstSeenAt = item.LastSeenAt
	}
	if err := s.itemStore.Upsert(ctx, *item); err != nil {
		return nil, fmt.Errorf("store listing %s: %w", itemID, err)
	}

	track, err := s.trackStore.Add(ctx, model.Track{
		ItemID:      itemID,
		Label:       label,
		MinQuantity: minQuantity,
		Notify:      notify,
		AddedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing tracked", "item_id", itemID, "display_name", item.DisplayName)
	return &track, nil
}

// Untrack stops watching a listing. The stored listing row is removed too
// when it was only known through the track; favorites-origin listings stay
// and keep polling with the feed. Returns driven.ErrTrackNotFound when the
// listing is not tracked.
func (s *TrackService) Untrack(ctx context.Context, itemID string) error {
	if err := s.trackStore.Remove(ctx, itemID); err != nil {
		return err
	}

	item, err := s.itemStore.GetByID(ctx, itemID)
	if err != nil {
		s.logger.Warn("failed to load listing after untrack", "item_id", itemID, "error", err)
		return nil
	}
	if item != nil && item.Origin == model.ItemOriginManual {
		if err := s.itemStore.Delete(ctx, itemID); err != nil {
			s.logger.Warn("failed to remove listing after untrack", "item_id", itemID, "error", err)
			return nil
		}
	}

	s.logger.Info("listing untracked", "item_id", itemID)
	return nil
}

// Update replaces the per-track overrides (label, minimum quantity, notify
// switch, notes). Returns driven.ErrTrackNotFound when the listing is not
// tracked.
func (s *TrackService) Update(ctx context.Context, track model.Track) error {
	return s.trackStore.Update(ctx, track)
}

// Get returns the track for a listing, or nil when it is not tracked.
func (s *TrackService) Get(ctx context.Context, itemID string) (*model.Track, error) {
	return s.trackStore.GetByItemID(ctx, itemID)
}

// List returns all tracks.
func (s *TrackService) List(ctx context.Context) ([]model.Track, error) {
	return s.trackStore.ListAll(ctx)
}
