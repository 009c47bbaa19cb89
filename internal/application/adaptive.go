package application

import (
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// ActivityTier represents the polling frequency classification for the
// watched listings based on how close they are to actionable moments.
type ActivityTier int

const (
	// TierHot indicates an available listing whose pickup window opens or
	// closes within the next half hour. Polls every 2 minutes.
	TierHot ActivityTier = iota
	// TierActive indicates at least one listing currently has stock.
	// Polls every 5 minutes.
	TierActive
	// TierWarm indicates a listing is inside its sales window but sold
	// out, so a restock is possible. Polls every 15 minutes.
	TierWarm
	// TierStale indicates nothing is purchasable right now. Polls at the
	// configured base interval.
	TierStale
)

// Polling intervals per activity tier. TierStale falls back to the
// configured base interval.
const (
	intervalHot    = 2 * time.Minute
	intervalActive = 5 * time.Minute
	intervalWarm   = 15 * time.Minute
)

// hotWindowProximity is how close a pickup-window edge must be for a
// listing to count as hot.
const hotWindowProximity = 30 * time.Minute

// String returns a human-readable name for the activity tier.
func (t ActivityTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierActive:
		return "active"
	case TierWarm:
		return "warm"
	case TierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// tierInterval returns the polling interval for the given activity tier.
// The configured base interval is both the TierStale cadence and a ceiling:
// a base shorter than a tier's preset wins, so an aggressively configured
// watcher never slows itself down.
func tierInterval(tier ActivityTier, base time.Duration) time.Duration {
	var d time.Duration
	switch tier {
	case TierHot:
		d = intervalHot
	case TierActive:
		d = intervalActive
	case TierWarm:
		d = intervalWarm
	default:
		d = base
	}
	if base < d {
		return base
	}
	return d
}

// classifyListings determines the activity tier across all watched listings.
// An empty set classifies as TierStale.
func classifyListings(items []model.Item, now time.Time) ActivityTier {
	tier := TierStale
	for _, item := range items {
		switch {
		case item.ItemsAvailable > 0 && nearPickupEdge(item.Pickup, now):
			return TierHot
		case item.ItemsAvailable > 0:
			tier = TierActive
		case item.InSalesWindow && tier == TierStale:
			tier = TierWarm
		}
	}
	return tier
}

// nearPickupEdge reports whether the pickup window is open or has an edge
// within hotWindowProximity of now.
func nearPickupEdge(w model.PickupWindow, now time.Time) bool {
	if w.IsZero() {
		return false
	}
	return w.Contains(now) ||
		w.StartsWithin(now, hotWindowProximity) ||
		w.EndsWithin(now, hotWindowProximity)
}
