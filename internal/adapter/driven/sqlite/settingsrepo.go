package sqlite

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo is the SQLite implementation of the SettingsStore port interface.
// Settings are stored as key-value rows so new settings can be added without
// a schema change.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// GetSettings returns the current global settings.
// Falls back to model.DefaultSettings() for any missing key or if the table is empty.
func (r *SettingsRepo) GetSettings(ctx context.Context) (model.Settings, error) {
	const query = `SELECT key, value FROM settings WHERE key IN ('watch_favorites', 'min_items_available', 'notify_on_available', 'notify_on_sold_out', 'notify_on_pickup_change')`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := model.DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return model.DefaultSettings(), fmt.Errorf("scan settings row: %w", err)
		}
		switch key {
		case "watch_favorites":
			settings.WatchFavorites = value == "1"
		case "min_items_available":
			if v, err := strconv.Atoi(value); err == nil {
				settings.MinItemsAvailable = v
			}
		case "notify_on_available":
			settings.NotifyOnAvailable = value == "1"
		case "notify_on_sold_out":
			settings.NotifyOnSoldOut = value == "1"
		case "notify_on_pickup_change":
			settings.NotifyOnPickupChange = value == "1"
		}
	}
	if err := rows.Err(); err != nil {
		return model.DefaultSettings(), fmt.Errorf("iterate settings: %w", err)
	}

	return settings, nil
}

// SetSettings persists the global settings using a transaction.
func (r *SettingsRepo) SetSettings(ctx context.Context, settings model.Settings) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`

	rows := []struct{ key, value string }{
		{"watch_favorites", boolValue(settings.WatchFavorites)},
		{"min_items_available", strconv.Itoa(settings.MinItemsAvailable)},
		{"notify_on_available", boolValue(settings.NotifyOnAvailable)},
		{"notify_on_sold_out", boolValue(settings.NotifyOnSoldOut)},
		{"notify_on_pickup_change", boolValue(settings.NotifyOnPickupChange)},
	}
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, upsert, row.key, row.value); err != nil {
			return fmt.Errorf("upsert setting %q: %w", row.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
