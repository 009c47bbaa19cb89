// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// ItemCardViewModel holds presentation-ready data for a listing card on the
// dashboard grid.
type ItemCardViewModel struct {
	ItemID           string
	Name             string
	StoreName        string
	ItemsAvailable   int
	AvailabilityHTML string // pre-rendered badge span
	Price            string
	OriginalValue    string
	DiscountLabel    string // "-67%", empty when the value is unknown
	PickupLabel      string
	PickupOpen       bool
	SoldOut          bool
	Origin           string
	Tracked          bool
	Muted            bool
	LogoURL          string
	ItemURL          string // public share link
	DetailPath       string
}

// ItemDetailViewModel holds presentation-ready data for the listing detail page.
type ItemDetailViewModel struct {
	ItemCardViewModel

	DescriptionHTML     string
	CoverURL            string
	RatingLabel         string // "4.3 (128 ratings)", empty when unrated
	FirstSeen           string
	LastSeen            string
	LastAvailable       string
	SoldOutAt           string
	OrdersPlaced        int
	TotalQuantity       int
	PickupWindowChanged bool
	CancelUntil         string

	History []HistoryPointViewModel

	// Form action targets.
	TrackPath   string
	UntrackPath string
	MutePath    string
	UnmutePath  string
	RefreshPath string
}

// HistoryPointViewModel holds one row of the availability history table.
type HistoryPointViewModel struct {
	CapturedAt     string
	ItemsAvailable int
	Price          string
}

// TrackRowViewModel holds presentation data for a tracked listing in the
// settings manager.
type TrackRowViewModel struct {
	ItemID      string
	Label       string
	MinQuantity int
	Notify      bool
	AddedAt     string
	DetailPath  string
	UntrackPath string
}

// WebhookRowViewModel holds presentation data for an alert target row.
type WebhookRowViewModel struct {
	Name       string
	URL        string
	Enabled    bool
	TogglePath string
	DeletePath string
}

// SettingsFormViewModel mirrors the global watcher settings form.
type SettingsFormViewModel struct {
	WatchFavorites       bool
	MinItemsAvailable    int
	NotifyOnAvailable    bool
	NotifyOnSoldOut      bool
	NotifyOnPickupChange bool
}

// AuthViewModel holds presentation data for the account section and the
// header indicator.
type AuthViewModel struct {
	State    string // "none", "pending", "authorized"
	Email    string
	LoggedIn bool
	Pending  bool
}

// PollStatusViewModel holds presentation data for the poll loop chip in the
// page header.
type PollStatusViewModel struct {
	LastPoll string // "14:05:12", empty before the first cycle
	Listings int
	Tier     string
	Degraded bool
}

// DashboardViewModel holds all data needed to render the dashboard page.
type DashboardViewModel struct {
	Cards          []ItemCardViewModel
	AvailableCount int
	Auth           AuthViewModel
	Poll           PollStatusViewModel
}

// SettingsPageViewModel holds all data needed to render the settings page.
type SettingsPageViewModel struct {
	Auth     AuthViewModel
	Form     SettingsFormViewModel
	Tracks   []TrackRowViewModel
	Webhooks []WebhookRowViewModel
}
