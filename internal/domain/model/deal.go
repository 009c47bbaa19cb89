package model

import "time"

// DealSignals is a transient model computed at poll time from the stored
// listing state and its previous snapshot. It is never persisted.
type DealSignals struct {
	BecameAvailable  bool // stock went from zero to at least the configured minimum
	SoldOut          bool // stock went from available to zero
	PickupEndingSoon bool // still available but the pickup window closes soon
	PickupChanged    bool // the store moved the pickup window on an active order
}

// HasAny returns true if any deal signal is active.
func (d DealSignals) HasAny() bool {
	return d.BecameAvailable || d.SoldOut || d.PickupEndingSoon || d.PickupChanged
}

// Severity returns the count of active signals (0-4), used to pick the
// highlight intensity on the panel.
func (d DealSignals) Severity() int {
	count := 0
	if d.BecameAvailable {
		count++
	}
	if d.SoldOut {
		count++
	}
	if d.PickupEndingSoon {
		count++
	}
	if d.PickupChanged {
		count++
	}
	return count
}

// Deal pairs a listing with its computed signals.
type Deal struct {
	Item    Item
	Signals DealSignals
}

// AlertEvent is the payload handed to webhook targets when a signal fires.
type AlertEvent struct {
	Type       EventType
	Item       Item
	Signals    DealSignals
	Message    string
	OccurredAt time.Time
}
