package model

// Settings holds the global watcher defaults for alert computation and
// favorites discovery.
type Settings struct {
	WatchFavorites       bool // poll the account's favorites feed in addition to explicit tracks
	MinItemsAvailable    int  // alert only when at least this many bags appear
	NotifyOnAvailable    bool
	NotifyOnSoldOut      bool
	NotifyOnPickupChange bool
}

// defaultMinItemsAvailable is the default stock count that triggers an alert.
const defaultMinItemsAvailable = 1

// DefaultSettings returns the hard-coded defaults used when no settings row
// exists in the database.
func DefaultSettings() Settings {
	return Settings{
		WatchFavorites:       true,
		MinItemsAvailable:    defaultMinItemsAvailable,
		NotifyOnAvailable:    true,
		NotifyOnSoldOut:      false,
		NotifyOnPickupChange: true,
	}
}
