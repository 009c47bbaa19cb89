package model

import "time"

// Track represents a listing explicitly tracked by item ID, as opposed to
// listings discovered through the favorites feed. Per-track overrides
// (label, minimum quantity, notify switch) live here; zero values fall back
// to the global settings.
type Track struct {
	ID          int64
	ItemID      string
	Label       string // optional display label; falls back to the listing's display name
	MinQuantity int    // alert only when at least this many bags are available; 0 = global default
	Notify      bool   // whether alerts fire for this track
	Notes       string // free-form markdown shown on the panel
	AddedAt     time.Time
}

// DisplayLabel returns the label, falling back to the given listing name.
func (t Track) DisplayLabel(fallback string) string {
	if t.Label != "" {
		return t.Label
	}
	return fallback
}

// EffectiveMinQuantity resolves the per-track minimum against the global default.
func (t Track) EffectiveMinQuantity(globalDefault int) int {
	if t.MinQuantity > 0 {
		return t.MinQuantity
	}
	return globalDefault
}
