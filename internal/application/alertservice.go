package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// pickupEndingSoonThreshold is how close to the pickup-window end a listing
// with remaining stock triggers the ending-soon signal.
const pickupEndingSoonThreshold = 30 * time.Minute

// ComputeDealSignals evaluates the transition between the previously stored
// listing state and the freshly fetched one. prev is nil on first sighting,
// which counts as a zero-to-stock transition. minQuantity is the resolved
// alert threshold; values below 1 are treated as 1.
func ComputeDealSignals(prev *model.Item, curr model.Item, minQuantity int, now time.Time) model.DealSignals {
	if minQuantity < 1 {
		minQuantity = 1
	}

	signals := model.DealSignals{}

	// BecameAvailable: stock crossed the threshold since the last poll.
	prevMet := prev != nil && prev.ItemsAvailable >= minQuantity
	signals.BecameAvailable = !prevMet && curr.ItemsAvailable >= minQuantity

	// SoldOut: any stock dropped to none.
	signals.SoldOut = prev != nil && prev.ItemsAvailable > 0 && curr.ItemsAvailable == 0

	// PickupEndingSoon: bags remain but the collection window closes soon.
	signals.PickupEndingSoon = curr.ItemsAvailable > 0 &&
		curr.Pickup.EndsWithin(now, pickupEndingSoonThreshold)

	// PickupChanged is derived from active orders, not from listings.
	return signals
}

// AlertService computes deal signals for listings and delivers alert events
// to the configured webhook targets. Per-track overrides and the mute list
// are applied here so the poll loop stays free of notification policy.
type AlertService struct {
	webhookStore  driven.WebhookStore
	muteStore     driven.MuteStore
	trackStore    driven.TrackStore
	settingsStore driven.SettingsStore
	itemStore     driven.ItemStore
	notifier      driven.AlertNotifier
	logger        *slog.Logger

	mu             sync.Mutex
	endingSoonSent map[string]time.Time // item ID -> pickup end already signaled
}

// NewAlertService creates a new AlertService with the required dependencies.
func NewAlertService(
	webhookStore driven.WebhookStore,
	muteStore driven.MuteStore,
	trackStore driven.TrackStore,
	settingsStore driven.SettingsStore,
	itemStore driven.ItemStore,
	notifier driven.AlertNotifier,
) *AlertService {
	return &AlertService{
		webhookStore:   webhookStore,
		muteStore:      muteStore,
		trackStore:     trackStore,
		settingsStore:  settingsStore,
		itemStore:      itemStore,
		notifier:       notifier,
		logger:         slog.Default(),
		endingSoonSent: make(map[string]time.Time),
	}
}

// SignalsFor computes the filtered deal signals for a listing transition.
// It resolves the global settings and any per-track override, applies the
// notification switches, and deduplicates the ending-soon signal so each
// pickup window is announced at most once. Returns zero-value signals on
// store errors (alerts degrade gracefully, polling continues).
func (s *AlertService) SignalsFor(ctx context.Context, prev *model.Item, curr model.Item, now time.Time) model.DealSignals {
	cfg, err := s.settingsStore.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("failed to load settings for alert evaluation, using defaults", "error", err)
		cfg = model.DefaultSettings()
	}

	minQuantity := cfg.MinItemsAvailable
	track, err := s.trackStore.GetByItemID(ctx, curr.ItemID)
	if err != nil {
		s.logger.Warn("failed to load track override", "item_id", curr.ItemID, "error", err)
	}
	if track != nil {
		if !track.Notify {
			return model.DealSignals{}
		}
		minQuantity = track.EffectiveMinQuantity(cfg.MinItemsAvailable)
	}

	signals := ComputeDealSignals(prev, curr, minQuantity, now)

	if !cfg.NotifyOnAvailable {
		signals.BecameAvailable = false
	}
	if !cfg.NotifyOnSoldOut {
		signals.SoldOut = false
	}
	if signals.PickupEndingSoon && !s.markEndingSoon(curr.ItemID, curr.Pickup.End) {
		signals.PickupEndingSoon = false
	}

	return signals
}

// markEndingSoon records that the ending-soon signal fired for the given
// pickup end. Returns false if that exact window end was already announced.
func (s *AlertService) markEndingSoon(itemID string, pickupEnd time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sent, ok := s.endingSoonSent[itemID]; ok && sent.Equal(pickupEnd) {
		return false
	}
	s.endingSoonSent[itemID] = pickupEnd
	return true
}

// Dispatch delivers an alert event for the deal to every enabled webhook
// target, unless the listing is muted. Delivery failures are logged per
// target and never abort the remaining targets.
func (s *AlertService) Dispatch(ctx context.Context, deal model.Deal) {
	muted, err := s.muteStore.IsMuted(ctx, deal.Item.ItemID)
	if err != nil {
		s.logger.Warn("failed to check mute state, dispatching anyway", "item_id", deal.Item.ItemID, "error", err)
	}
	if muted {
		s.logger.Debug("alert suppressed for muted listing", "item_id", deal.Item.ItemID)
		return
	}

	hooks, err := s.webhookStore.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to list webhook targets", "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	event := buildAlertEvent(deal, time.Now().UTC())
	for _, hook := range hooks {
		if err := s.notifier.Send(ctx, hook, event); err != nil {
			s.logger.Error("alert delivery failed",
				"webhook", hook.Name,
				"event", string(event.Type),
				"item_id", deal.Item.ItemID,
				"error", err,
			)
			continue
		}
		s.logger.Info("alert delivered",
			"webhook", hook.Name,
			"event", string(event.Type),
			"item_id", deal.Item.ItemID,
		)
	}
}

// NotifyPickupChanges compares the active orders before and after a poll and
// dispatches a pickup-changed alert for each order whose window moved. The
// API keeps the changed flag set for the order's lifetime, so an alert fires
// only when the flag appears or the window moves again.
func (s *AlertService) NotifyPickupChanges(ctx context.Context, previous, current []model.Order) {
	cfg, err := s.settingsStore.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("failed to load settings for pickup-change alerts, using defaults", "error", err)
		cfg = model.DefaultSettings()
	}
	if !cfg.NotifyOnPickupChange {
		return
	}

	prevByOrder := make(map[string]model.Order, len(previous))
	for _, o := range previous {
		prevByOrder[o.OrderID] = o
	}

	for _, order := range current {
		if !order.PickupWindowChanged {
			continue
		}
		if prev, ok := prevByOrder[order.OrderID]; ok && prev.PickupWindowChanged && prev.Pickup.Equal(order.Pickup) {
			continue
		}

		item := s.listingForOrder(ctx, order)
		s.Dispatch(ctx, model.Deal{
			Item:    item,
			Signals: model.DealSignals{PickupChanged: true},
		})
	}
}

// listingForOrder resolves the stored listing behind an order, falling back
// to a minimal view built from the order itself when the listing is unknown.
func (s *AlertService) listingForOrder(ctx context.Context, order model.Order) model.Item {
	item, err := s.itemStore.GetByID(ctx, order.ItemID)
	if err != nil {
		s.logger.Warn("failed to load listing for order alert", "item_id", order.ItemID, "error", err)
	}
	if item != nil {
		return *item
	}
	return model.Item{
		ItemID:      order.ItemID,
		DisplayName: order.StoreName,
		StoreName:   order.StoreName,
		Description: order.ItemName,
		Pickup:      order.Pickup,
	}
}

// buildAlertEvent converts a deal into the event payload handed to webhook
// targets. The event type reflects the most significant active signal.
func buildAlertEvent(deal model.Deal, now time.Time) model.AlertEvent {
	event := model.AlertEvent{
		Item:       deal.Item,
		Signals:    deal.Signals,
		OccurredAt: now,
	}

	name := deal.Item.DisplayName
	switch {
	case deal.Signals.BecameAvailable:
		event.Type = model.EventItemAvailable
		event.Message = fmt.Sprintf("%s has %d bags available", name, deal.Item.ItemsAvailable)
		if price := deal.Item.Price.String(); price != "" {
			event.Message += " for " + price
		}
	case deal.Signals.SoldOut:
		event.Type = model.EventItemSoldOut
		event.Message = fmt.Sprintf("%s sold out", name)
	case deal.Signals.PickupChanged:
		event.Type = model.EventPickupWindowChanged
		event.Message = fmt.Sprintf("%s moved the pickup window for an active order", name)
		if !deal.Item.Pickup.IsZero() {
			event.Message += fmt.Sprintf(" to %s", deal.Item.Pickup.Start.UTC().Format("15:04"))
		}
	case deal.Signals.PickupEndingSoon:
		event.Type = model.EventPickupEndingSoon
		event.Message = fmt.Sprintf("%s pickup ends at %s with %d bags left",
			name, deal.Item.Pickup.End.UTC().Format("15:04"), deal.Item.ItemsAvailable)
	default:
		event.Type = model.EventItemAvailable
		event.Message = name
	}

	return event
}
