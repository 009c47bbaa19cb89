package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OrderStore = (*OrderRepo)(nil)

// OrderRepo is the SQLite implementation of the OrderStore port interface.
type OrderRepo struct {
	db *DB
}

// NewOrderRepo creates a new OrderRepo backed by the given DB.
func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// ReplaceAll atomically replaces the stored order set. The orders endpoint
// returns the complete active set, so each poll deletes and reinserts in a
// single transaction.
func (r *OrderRepo) ReplaceAll(ctx context.Context, orders []model.Order) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const deleteQuery = `DELETE FROM orders`
	if _, err := tx.ExecContext(ctx, deleteQuery); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}

	const insertQuery = `
		INSERT INTO orders (order_id, item_id, state, quantity, pickup_start, pickup_end,
			pickup_window_changed, cancel_until, store_name, item_name, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, order := range orders {
		windowChanged := 0
		if order.PickupWindowChanged {
			windowChanged = 1
		}

		if _, err := tx.ExecContext(ctx, insertQuery,
			order.OrderID, order.ItemID, order.State, order.Quantity,
			nullableTime(order.Pickup.Start), nullableTime(order.Pickup.End),
			windowChanged, nullableTime(order.CancelUntil),
			order.StoreName, order.ItemName, nullableTime(order.PlacedAt),
		); err != nil {
			return fmt.Errorf("insert order %s: %w", order.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit orders: %w", err)
	}

	return nil
}

// ListAll returns all stored orders, newest placement first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	const query = `
		SELECT order_id, item_id, state, quantity, pickup_start, pickup_end,
		       pickup_window_changed, cancel_until, store_name, item_name, placed_at
		FROM orders
		ORDER BY placed_at DESC
	`

	return r.queryOrders(ctx, query)
}

// ListByItem returns the stored orders for the given listing.
func (r *OrderRepo) ListByItem(ctx context.Context, itemID string) ([]model.Order, error) {
	const query = `
		SELECT order_id, item_id, state, quantity, pickup_start, pickup_end,
		       pickup_window_changed, cancel_until, store_name, item_name, placed_at
		FROM orders
		WHERE item_id = ?
		ORDER BY placed_at DESC
	`

	return r.queryOrders(ctx, query, itemID)
}

func (r *OrderRepo) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func scanOrder(s scanner) (*model.Order, error) {
	var order model.Order
	var windowChanged int
	var pickupStart, pickupEnd, cancelUntil, placedAt sql.NullString

	err := s.Scan(
		&order.OrderID, &order.ItemID, &order.State, &order.Quantity,
		&pickupStart, &pickupEnd, &windowChanged, &cancelUntil,
		&order.StoreName, &order.ItemName, &placedAt,
	)
	if err != nil {
		return nil, err
	}

	order.PickupWindowChanged = windowChanged != 0

	if order.Pickup.Start, err = parseNullTime(pickupStart); err != nil {
		return nil, fmt.Errorf("parse pickup_start: %w", err)
	}
	if order.Pickup.End, err = parseNullTime(pickupEnd); err != nil {
		return nil, fmt.Errorf("parse pickup_end: %w", err)
	}
	if order.CancelUntil, err = parseNullTime(cancelUntil); err != nil {
		return nil, fmt.Errorf("parse cancel_until: %w", err)
	}
	if order.PlacedAt, err = parseNullTime(placedAt); err != nil {
		return nil, fmt.Errorf("parse placed_at: %w", err)
	}

	return &order, nil
}
