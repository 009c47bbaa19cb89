package model

// ItemState represents the availability state of a listing.
type ItemState string

const (
	ItemStateAvailable ItemState = "available"
	ItemStateSoldOut   ItemState = "sold_out"
	ItemStateUnknown   ItemState = "unknown"
)

// ItemOrigin distinguishes how a listing entered the tracked set.
type ItemOrigin string

const (
	ItemOriginFavorites ItemOrigin = "favorites" // discovered through the account's favorites feed
	ItemOriginManual    ItemOrigin = "manual"    // explicitly tracked by item ID
)

// AuthState represents the progress of the TGTG email login flow.
type AuthState string

const (
	AuthStateNone       AuthState = "none"       // no credentials stored
	AuthStatePending    AuthState = "pending"    // login mail sent, waiting for the link click
	AuthStateAuthorized AuthState = "authorized" // token set stored and usable
)

// EventType identifies the kind of alert dispatched to webhook targets.
type EventType string

const (
	EventItemAvailable       EventType = "item_available"
	EventItemSoldOut         EventType = "item_sold_out"
	EventPickupEndingSoon    EventType = "pickup_ending_soon"
	EventPickupWindowChanged EventType = "pickup_window_changed"
)
