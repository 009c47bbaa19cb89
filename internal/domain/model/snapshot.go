package model

import "time"

// Snapshot is one point of availability history for a listing, captured on
// each poll. The poll loop appends one snapshot per listing whenever stock
// or price changed since the previous point.
type Snapshot struct {
	ID              int64
	ItemID          string
	ItemsAvailable  int
	PriceMinorUnits int64 // price at capture time, in minor units
	CapturedAt      time.Time
}
