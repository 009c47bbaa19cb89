package model

import "time"

// MutedItem records that a specific listing has been excluded from alerts
// by the user. Muted listings keep polling and appear on the panel.
type MutedItem struct {
	ID      int64
	ItemID  string
	MutedAt time.Time
}
