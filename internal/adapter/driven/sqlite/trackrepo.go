package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TrackStore = (*TrackRepo)(nil)

// TrackRepo is the SQLite implementation of the TrackStore port interface.
type TrackRepo struct {
	db *DB
}

// NewTrackRepo creates a new TrackRepo backed by the given DB.
func NewTrackRepo(db *DB) *TrackRepo {
	return &TrackRepo{db: db}
}

// Add inserts a new track. Returns ErrTrackAlreadyExists if the item is
// already tracked.
func (r *TrackRepo) Add(ctx context.Context, track model.Track) (model.Track, error) {
	const query = `INSERT INTO tracks (item_id, label, min_quantity, notify, notes, added_at) VALUES (?, ?, ?, ?, ?, ?)`

	addedAt := track.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	notify := 0
	if track.Notify {
		notify = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		track.ItemID, track.Label, track.MinQuantity, notify, track.Notes, addedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Track{}, fmt.Errorf("add track %s: %w", track.ItemID, driven.ErrTrackAlreadyExists)
		}
		return model.Track{}, fmt.Errorf("add track %s: %w", track.ItemID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Track{}, fmt.Errorf("track insert id: %w", err)
	}

	track.ID = id
	track.AddedAt = addedAt
	return track, nil
}

// Remove deletes a track by item ID. Returns ErrTrackNotFound if the track
// does not exist. The listing itself is kept until stale cleanup.
func (r *TrackRepo) Remove(ctx context.Context, itemID string) error {
	const query = `DELETE FROM tracks WHERE item_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("remove track %s: %w", itemID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove track %s: %w", itemID, driven.ErrTrackNotFound)
	}

	return nil
}

// Update replaces the mutable fields of a track (label, minimum quantity,
// notify switch, notes). Returns ErrTrackNotFound if the track does not exist.
func (r *TrackRepo) Update(ctx context.Context, track model.Track) error {
	const query = `UPDATE tracks SET label = ?, min_quantity = ?, notify = ?, notes = ? WHERE item_id = ?`

	notify := 0
	if track.Notify {
		notify = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		track.Label, track.MinQuantity, notify, track.Notes, track.ItemID,
	)
	if err != nil {
		return fmt.Errorf("update track %s: %w", track.ItemID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update track %s: %w", track.ItemID, driven.ErrTrackNotFound)
	}

	return nil
}

// GetByItemID retrieves a track by its item ID. Returns nil, nil if the
// track does not exist.
func (r *TrackRepo) GetByItemID(ctx context.Context, itemID string) (*model.Track, error) {
	const query = `SELECT id, item_id, label, min_quantity, notify, notes, added_at FROM tracks WHERE item_id = ?`

	track, err := scanTrack(r.db.Reader.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", itemID, err)
	}

	return track, nil
}

// ListAll returns all tracks ordered by when they were added.
func (r *TrackRepo) ListAll(ctx context.Context) ([]model.Track, error) {
	const query = `SELECT id, item_id, label, min_quantity, notify, notes, added_at FROM tracks ORDER BY added_at`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []model.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}

	return tracks, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (*model.Track, error) {
	var track model.Track
	var notify int
	var addedAt string

	err := s.Scan(&track.ID, &track.ItemID, &track.Label, &track.MinQuantity, &notify, &track.Notes, &addedAt)
	if err != nil {
		return nil, err
	}

	track.Notify = notify != 0

	track.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &track, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
