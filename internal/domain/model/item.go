package model

import (
	"strconv"
	"time"
)

// shareURLBase is the public share link prefix for listings.
const shareURLBase = "https://share.toogoodtogo.com/item/"

// Amount is a monetary value in minor units together with its currency.
// A price of EUR 4.99 arrives as {MinorUnits: 499, Decimals: 2, Code: "EUR"}.
type Amount struct {
	MinorUnits int64
	Decimals   int
	Code       string
}

// IsZero reports whether the amount carries no value at all.
func (a Amount) IsZero() bool {
	return a.MinorUnits == 0 && a.Code == ""
}

// Units returns the amount in major units (e.g. 499 minor, 2 decimals -> 4.99).
func (a Amount) Units() float64 {
	div := 1.0
	for i := 0; i < a.Decimals; i++ {
		div *= 10
	}
	return float64(a.MinorUnits) / div
}

// String renders the amount as "4.99 EUR", using the currency's declared
// decimal count. Zero amounts render as an empty string.
func (a Amount) String() string {
	if a.IsZero() {
		return ""
	}
	return strconv.FormatFloat(a.Units(), 'f', a.Decimals, 64) + " " + a.Code
}

// PickupWindow is the interval during which a purchased bag can be collected.
type PickupWindow struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no pickup window was announced.
func (w PickupWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Equal reports whether both windows cover the same interval.
func (w PickupWindow) Equal(other PickupWindow) bool {
	return w.Start.Equal(other.Start) && w.End.Equal(other.End)
}

// Contains reports whether t falls inside the window.
func (w PickupWindow) Contains(t time.Time) bool {
	if w.IsZero() {
		return false
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartsWithin reports whether the window opens within d from now.
func (w PickupWindow) StartsWithin(now time.Time, d time.Duration) bool {
	if w.Start.IsZero() || w.Start.Before(now) {
		return false
	}
	return w.Start.Sub(now) <= d
}

// EndsWithin reports whether the window is open and closes within d from now.
func (w PickupWindow) EndsWithin(now time.Time, d time.Duration) bool {
	if w.End.IsZero() || w.End.Before(now) {
		return false
	}
	return w.End.Sub(now) <= d
}

// Item represents a TGTG magic-bag listing tracked by the watcher.
type Item struct {
	ItemID          string
	DisplayName     string // store display name as shown in the app, e.g. "Beranek's Bakery (Downtown)"
	StoreName       string
	StoreBranch     string
	Description     string
	ItemsAvailable  int
	Price           Amount
	OriginalValue   Amount // retail value of the bag's contents
	Pickup          PickupWindow
	SoldOutAt       time.Time // last sold-out timestamp reported by the API (zero if never)
	PurchaseEnd     time.Time // zero when the API omits it
	LogoURL         string
	CoverURL        string
	Rating          float64 // average overall rating, 0 when unrated
	RatingCount     int
	Favorite        bool
	InSalesWindow   bool
	ItemType        string // e.g. "MAGIC_BAG"
	Origin          ItemOrigin
	FirstSeenAt     time.Time
	LastSeenAt      time.Time // last poll that returned this listing
	LastAvailableAt time.Time // last poll that observed stock, zero if never
	UpdatedAt       time.Time
}

// State derives the availability state from the current stock count.
// A listing that reported sold-out and has no stock is sold out; a listing
// never seen with stock information is unknown.
func (i Item) State() ItemState {
	switch {
	case i.ItemsAvailable > 0:
		return ItemStateAvailable
	case !i.SoldOutAt.IsZero() || !i.LastSeenAt.IsZero():
		return ItemStateSoldOut
	default:
		return ItemStateUnknown
	}
}

// ShareURL returns the public share link for the listing.
func (i Item) ShareURL() string {
	return shareURLBase + i.ItemID
}

// PickupOpen reports whether the pickup window is currently open.
func (i Item) PickupOpen(now time.Time) bool {
	return i.Pickup.Contains(now)
}
