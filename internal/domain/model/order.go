package model

import "time"

// Order represents an active order returned by the orders endpoint.
type Order struct {
	OrderID             string
	ItemID              string    // links the order back to its listing
	State               string    // e.g. ACTIVE, CONFIRMED, REDEEMED; raw API value
	Quantity            int       // number of bags in this order
	Pickup              PickupWindow
	PickupWindowChanged bool      // the store moved the pickup window after purchase
	CancelUntil         time.Time // deadline for a free cancellation (zero if none)
	StoreName           string
	ItemName            string
	PlacedAt            time.Time // when the order was placed (zero if not reported)
}

// OrderSummary aggregates the active orders for a single listing.
// Computed at read time, never persisted.
type OrderSummary struct {
	OrdersPlaced        int
	TotalQuantity       int
	PickupWindowChanged bool
	CancelUntil         time.Time // earliest cancellation deadline among the orders
}

// SummarizeOrders folds the orders belonging to itemID into a summary.
func SummarizeOrders(itemID string, orders []Order) OrderSummary {
	var s OrderSummary
	for _, o := range orders {
		if o.ItemID != itemID {
			continue
		}
		s.OrdersPlaced++
		s.TotalQuantity += o.Quantity
		if o.PickupWindowChanged {
			s.PickupWindowChanged = true
		}
		if !o.CancelUntil.IsZero() && (s.CancelUntil.IsZero() || o.CancelUntil.Before(s.CancelUntil)) {
			s.CancelUntil = o.CancelUntil
		}
	}
	return s
}
