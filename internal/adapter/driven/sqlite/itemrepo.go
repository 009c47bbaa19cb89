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
var _ driven.ItemStore = (*ItemRepo)(nil)

// ItemRepo is the SQLite implementation of the ItemStore port interface.
type ItemRepo struct {
	db *DB
}

// NewItemRepo creates a new ItemRepo backed by the given DB.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `
	id, item_id, display_name, store_name, store_branch, description,
	items_available, price_minor_units, price_decimals, price_code,
	value_minor_units, value_decimals, value_code,
	pickup_start, pickup_end, sold_out_at, purchase_end,
	logo_url, cover_url, rating, rating_count, favorite, in_sales_window,
	item_type, origin, first_seen_at, last_seen_at, last_available_at, updated_at`

// Upsert inserts or replaces a listing. first_seen_at is preserved on update
// so the row keeps the time the listing was first discovered.
func (r *ItemRepo) Upsert(ctx context.Context, item model.Item) error {
	const query = `
		INSERT INTO items (
			item_id, display_name, store_name, store_branch, description,
			items_available, price_minor_units, price_decimals, price_code,
			value_minor_units, value_decimals, value_code,
			pickup_start, pickup_end, sold_out_at, purchase_end,
			logo_url, cover_url, rating, rating_count, favorite, in_sales_window,
			item_type, origin, first_seen_at, last_seen_at, last_available_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			display_name = excluded.display_name,
			store_name = excluded.store_name,
			store_branch = excluded.store_branch,
			description = excluded.description,
			items_available = excluded.items_available,
			price_minor_units = excluded.price_minor_units,
			price_decimals = excluded.price_decimals,
			price_code = excluded.price_code,
			value_minor_units = excluded.value_minor_units,
			value_decimals = excluded.value_decimals,
			value_code = excluded.value_code,
			pickup_start = excluded.pickup_start,
			pickup_end = excluded.pickup_end,
			sold_out_at = excluded.sold_out_at,
			purchase_end = excluded.purchase_end,
			logo_url = excluded.logo_url,
			cover_url = excluded.cover_url,
			rating = excluded.rating,
			rating_count = excluded.rating_count,
			favorite = excluded.favorite,
			in_sales_window = excluded.in_sales_window,
			item_type = excluded.item_type,
			origin = excluded.origin,
			last_seen_at = excluded.last_seen_at,
			last_available_at = excluded.last_available_at,
			updated_at = excluded.updated_at
	`

	favorite := 0
	if item.Favorite {
		favorite = 1
	}

	inSales := 0
	if item.InSalesWindow {
		inSales = 1
	}

	firstSeen := item.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		item.ItemID, item.DisplayName, item.StoreName, item.StoreBranch, item.Description,
		item.ItemsAvailable, item.Price.MinorUnits, item.Price.Decimals, item.Price.Code,
		item.OriginalValue.MinorUnits, item.OriginalValue.Decimals, item.OriginalValue.Code,
		nullableTime(item.Pickup.Start), nullableTime(item.Pickup.End),
		nullableTime(item.SoldOutAt), nullableTime(item.PurchaseEnd),
		item.LogoURL, item.CoverURL, item.Rating, item.RatingCount, favorite, inSales,
		item.ItemType, string(item.Origin), firstSeen.UTC(), item.LastSeenAt.UTC(),
		nullableTime(item.LastAvailableAt), item.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", item.ItemID, err)
	}

	return nil
}

// GetByID retrieves a single listing by item ID.
// Returns nil, nil if the listing does not exist.
func (r *ItemRepo) GetByID(ctx context.Context, itemID string) (*model.Item, error) {
	query := `SELECT` + itemColumns + ` FROM items WHERE item_id = ?`

	item, err := scanItem(r.db.Reader.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}

	return item, nil
}

// ListAll returns all listings ordered by display name.
func (r *ItemRepo) ListAll(ctx context.Context) ([]model.Item, error) {
	query := `SELECT` + itemColumns + ` FROM items ORDER BY display_name`

	return r.queryItems(ctx, query)
}

// ListAvailable returns listings with stock, most bags first.
func (r *ItemRepo) ListAvailable(ctx context.Context) ([]model.Item, error) {
	query := `SELECT` + itemColumns + ` FROM items WHERE items_available > 0 ORDER BY items_available DESC, display_name`

	return r.queryItems(ctx, query)
}

// Delete removes a listing by item ID. Returns an error if the listing does
// not exist.
func (r *ItemRepo) Delete(ctx context.Context, itemID string) error {
	const query = `DELETE FROM items WHERE item_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("item %s not found", itemID)
	}

	return nil
}

// DeleteStaleFavorites removes favorites-origin listings whose last_seen_at
// is older than the cutoff. Manually tracked listings are kept regardless.
func (r *ItemRepo) DeleteStaleFavorites(ctx context.Context, seenBefore time.Time) (int64, error) {
	const query = `DELETE FROM items WHERE origin = ? AND last_seen_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, string(model.ItemOriginFavorites), seenBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale favorites: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}

func (r *ItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return items, nil
}

func scanItem(s scanner) (*model.Item, error) {
	var item model.Item
	var dbID int64
	var favorite, inSales int
	var origin string
	var pickupStart, pickupEnd, soldOutAt, purchaseEnd, lastAvailableAt sql.NullString
	var firstSeenAt, lastSeenAt, updatedAt string

	err := s.Scan(
		&dbID, &item.ItemID, &item.DisplayName, &item.StoreName, &item.StoreBranch, &item.Description,
		&item.ItemsAvailable, &item.Price.MinorUnits, &item.Price.Decimals, &item.Price.Code,
		&item.OriginalValue.MinorUnits, &item.OriginalValue.Decimals, &item.OriginalValue.Code,
		&pickupStart, &pickupEnd, &soldOutAt, &purchaseEnd,
		&item.LogoURL, &item.CoverURL, &item.Rating, &item.RatingCount, &favorite, &inSales,
		&item.ItemType, &origin, &firstSeenAt, &lastSeenAt, &lastAvailableAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Favorite = favorite != 0
	item.InSalesWindow = inSales != 0
	item.Origin = model.ItemOrigin(origin)

	if item.Pickup.Start, err = parseNullTime(pickupStart); err != nil {
		return nil, fmt.Errorf("parse pickup_start: %w", err)
	}
	if item.Pickup.End, err = parseNullTime(pickupEnd); err != nil {
		return nil, fmt.Errorf("parse pickup_end: %w", err)
	}
	if item.SoldOutAt, err = parseNullTime(soldOutAt); err != nil {
		return nil, fmt.Errorf("parse sold_out_at: %w", err)
	}
	if item.PurchaseEnd, err = parseNullTime(purchaseEnd); err != nil {
		return nil, fmt.Errorf("parse purchase_end: %w", err)
	}

	if item.FirstSeenAt, err = parseTime(firstSeenAt); err != nil {
		return nil, fmt.Errorf("parse first_seen_at: %w", err)
	}
	if item.LastSeenAt, err = parseTime(lastSeenAt); err != nil {
		return nil, fmt.Errorf("parse last_seen_at: %w", err)
	}
	if item.LastAvailableAt, err = parseNullTime(lastAvailableAt); err != nil {
		return nil, fmt.Errorf("parse last_available_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &item, nil
}

// nullableTime converts a time to a driver value, mapping the zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// parseNullTime parses an optional datetime column, mapping NULL to the zero time.
func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}
