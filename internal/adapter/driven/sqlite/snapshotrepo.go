package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotStore = (*SnapshotRepo)(nil)

// SnapshotRepo is the SQLite implementation of the SnapshotStore port interface.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new SnapshotRepo backed by the given DB.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Append stores one availability history point for a listing.
func (r *SnapshotRepo) Append(ctx context.Context, snapshot model.Snapshot) error {
	const query = `INSERT INTO snapshots (item_id, items_available, price_minor_units, captured_at) VALUES (?, ?, ?, ?)`

	capturedAt := snapshot.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		snapshot.ItemID, snapshot.ItemsAvailable, snapshot.PriceMinorUnits, capturedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append snapshot for item %s: %w", snapshot.ItemID, err)
	}

	return nil
}

// Latest returns the most recent history point for a listing, or nil when
// none exists.
func (r *SnapshotRepo) Latest(ctx context.Context, itemID string) (*model.Snapshot, error) {
	const query = `
		SELECT id, item_id, items_available, price_minor_units, captured_at
		FROM snapshots
		WHERE item_id = ?
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(r.db.Reader.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot for item %s: %w", itemID, err)
	}

	return snapshot, nil
}

// ListByItem returns history points captured at or after since, oldest first.
func (r *SnapshotRepo) ListByItem(ctx context.Context, itemID string, since time.Time) ([]model.Snapshot, error) {
	const query = `
		SELECT id, item_id, items_available, price_minor_units, captured_at
		FROM snapshots
		WHERE item_id = ? AND captured_at >= ?
		ORDER BY captured_at, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, itemID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query snapshots for item %s: %w", itemID, err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// PruneBefore removes history points older than the cutoff and returns the
// number of rows removed.
func (r *SnapshotRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM snapshots WHERE captured_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}

func scanSnapshot(s scanner) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	var capturedAt string

	err := s.Scan(&snapshot.ID, &snapshot.ItemID, &snapshot.ItemsAvailable, &snapshot.PriceMinorUnits, &capturedAt)
	if err != nil {
		return nil, err
	}

	snapshot.CapturedAt, err = parseTime(capturedAt)
	if err != nil {
		return nil, fmt.Errorf("parse captured_at: %w", err)
	}

	return &snapshot, nil
}
