package driven

import (
	"context"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// OrderStore defines the driven port for active-order persistence.
// Uses full replacement strategy: the orders endpoint always returns the
// complete active set, so each poll replaces the stored set atomically.
type OrderStore interface {
	// ReplaceAll deletes all stored orders and inserts the provided ones
	// atomically in a transaction.
	ReplaceAll(ctx context.Context, orders []model.Order) error
	// ListAll returns all stored orders, newest placement first.
	ListAll(ctx context.Context) ([]model.Order, error)
	// ListByItem returns the stored orders for the given listing.
	ListByItem(ctx context.Context, itemID string) ([]model.Order, error)
}
