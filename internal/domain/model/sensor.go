package model

import "time"

// Sensor presentation constants, shared by every listing sensor.
const (
	SensorIcon = "mdi:storefront-outline"
	SensorUnit = "pcs"

	sensorNamePrefix     = "TGTG "
	sensorUniqueIDPrefix = "tgtg_"
)

// SensorAttributes carries the extra state attributes exposed alongside a
// sensor reading. String prices are pre-formatted ("4.99 EUR").
type SensorAttributes struct {
	ItemID               string
	ItemURL              string
	Price                string
	OriginalValue        string
	PickupStart          time.Time
	PickupEnd            time.Time
	SoldOutAt            time.Time
	OrdersPlaced         int
	TotalQuantityOrdered int // only surfaced when positive
	PickupWindowChanged  bool
	CancelUntil          time.Time
	LogoURL              string
	CoverURL             string
}

// SensorReading is the Home Assistant-facing view of one listing: a numeric
// state (bags available) plus descriptive attributes. Computed on demand.
type SensorReading struct {
	UniqueID   string
	Name       string
	Icon       string
	Unit       string
	State      int
	Attributes SensorAttributes
}

// BuildSensorReading assembles the sensor view for a listing and the summary
// of its active orders.
func BuildSensorReading(item Item, orders OrderSummary) SensorReading {
	return SensorReading{
		UniqueID: sensorUniqueIDPrefix + item.ItemID,
		Name:     sensorNamePrefix + item.DisplayName,
		Icon:     SensorIcon,
		Unit:     SensorUnit,
		State:    item.ItemsAvailable,
		Attributes: SensorAttributes{
			ItemID:               item.ItemID,
			ItemURL:              item.ShareURL(),
			Price:                item.Price.String(),
			OriginalValue:        item.OriginalValue.String(),
			PickupStart:          item.Pickup.Start,
			PickupEnd:            item.Pickup.End,
			SoldOutAt:            item.SoldOutAt,
			OrdersPlaced:         orders.OrdersPlaced,
			TotalQuantityOrdered: orders.TotalQuantity,
			PickupWindowChanged:  orders.PickupWindowChanged,
			CancelUntil:          orders.CancelUntil,
			LogoURL:              item.LogoURL,
			CoverURL:             item.CoverURL,
		},
	}
}
