package sqlite

import (
	"context"
	"fmt"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MuteStore = (*MuteRepo)(nil)

// MuteRepo is the SQLite implementation of the MuteStore port interface.
type MuteRepo struct {
	db *DB
}

// NewMuteRepo creates a new MuteRepo backed by the given DB.
func NewMuteRepo(db *DB) *MuteRepo {
	return &MuteRepo{db: db}
}

// Mute excludes a listing from alerts. Idempotent — silently succeeds if
// already muted.
func (r *MuteRepo) Mute(ctx context.Context, itemID string) error {
	const query = `INSERT OR IGNORE INTO muted_items (item_id) VALUES (?)`
	_, err := r.db.Writer.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("mute item %s: %w", itemID, err)
	}
	return nil
}

// Unmute removes a listing from the mute list. No-op if the listing is not muted.
func (r *MuteRepo) Unmute(ctx context.Context, itemID string) error {
	const query = `DELETE FROM muted_items WHERE item_id = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("unmute item %s: %w", itemID, err)
	}
	return nil
}

// IsMuted returns whether the given listing is currently muted.
func (r *MuteRepo) IsMuted(ctx context.Context, itemID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM muted_items WHERE item_id = ?`
	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, itemID).Scan(&count); err != nil {
		return false, fmt.Errorf("check mute for item %s: %w", itemID, err)
	}
	return count > 0, nil
}

// ListMuted returns all muted listings, most recently muted first.
func (r *MuteRepo) ListMuted(ctx context.Context) ([]model.MutedItem, error) {
	const query = `SELECT id, item_id, muted_at FROM muted_items ORDER BY muted_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list muted items: %w", err)
	}
	defer rows.Close()

	var muted []model.MutedItem
	for rows.Next() {
		var m model.MutedItem
		var mutedAt string
		if err := rows.Scan(&m.ID, &m.ItemID, &mutedAt); err != nil {
			return nil, fmt.Errorf("scan muted item: %w", err)
		}

		m.MutedAt, err = parseTime(mutedAt)
		if err != nil {
			return nil, fmt.Errorf("parse muted_at: %w", err)
		}

		muted = append(muted, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate muted items: %w", err)
	}

	return muted, nil
}
