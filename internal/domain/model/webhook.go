package model

import "time"

// Webhook holds a configured alert target. Alerts are delivered as JSON
// POSTs; Secret, when set, is used to sign the request body.
type Webhook struct {
	ID      int64
	Name    string // e.g. "home-assistant", "ntfy"
	URL     string
	Secret  string
	Enabled bool
	AddedAt time.Time
}
