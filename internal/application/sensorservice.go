package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// SensorService assembles the Home Assistant-facing sensor views from stored
// listings, active orders, and availability history. It performs no API
// calls; everything is served from the database.
type SensorService struct {
	itemStore     driven.ItemStore
	orderStore    driven.OrderStore
	snapshotStore driven.SnapshotStore
}

// NewSensorService creates a new SensorService with the required dependencies.
func NewSensorService(itemStore driven.ItemStore, orderStore driven.OrderStore, snapshotStore driven.SnapshotStore) *SensorService {
	return &SensorService{
		itemStore:     itemStore,
		orderStore:    orderStore,
		snapshotStore: snapshotStore,
	}
}

// Reading returns the sensor view for one listing, or nil when the listing
// is unknown.
func (s *SensorService) Reading(ctx context.Context, itemID string) (*model.SensorReading, error) {
	item, err := s.itemStore.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load listing %s: %w", itemID, err)
	}
	if item == nil {
		return nil, nil
	}

	orders, err := s.orderStore.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load orders for %s: %w", itemID, err)
	}

	reading := model.BuildSensorReading(*item, model.SummarizeOrders(itemID, orders))
	return &reading, nil
}

// Readings returns the sensor views for all stored listings, in the store's
// display order.
func (s *SensorService) Readings(ctx context.Context) ([]model.SensorReading, error) {
	items, err := s.itemStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	orders, err := s.orderStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	readings := make([]model.SensorReading, 0, len(items))
	for _, item := range items {
		readings = append(readings, model.BuildSensorReading(item, model.SummarizeOrders(item.ItemID, orders)))
	}
	return readings, nil
}

// History returns the availability history points for a listing captured at
// or after since, oldest first.
func (s *SensorService) History(ctx context.Context, itemID string, since time.Time) ([]model.Snapshot, error) {
	snapshots, err := s.snapshotStore.ListByItem(ctx, itemID, since)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", itemID, err)
	}
	return snapshots, nil
}
