package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

func TestDiscountLabel(t *testing.T) {
	price := model.Amount{MinorUnits: 499, Decimals: 2, Code: "EUR"}
	original := model.Amount{MinorUnits: 1500, Decimals: 2, Code: "EUR"}

	assert.Equal(t, "-67%", discountLabel(price, original))
	assert.Equal(t, "", discountLabel(price, model.Amount{}), "unknown retail value renders nothing")
	assert.Equal(t, "", discountLabel(original, price), "a price above the retail value renders nothing")
}

func TestPickupLabel(t *testing.T) {
	// 2026-08-20 is a Thursday. Local times keep the label deterministic.
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.Local)
	start := time.Date(2026, 8, 20, 17, 30, 0, 0, time.Local)
	end := time.Date(2026, 8, 20, 18, 0, 0, 0, time.Local)

	sameDayWindow := model.PickupWindow{Start: start, End: end}
	assert.Equal(t, "today 17:30 to 18:00", pickupLabel(sameDayWindow, now))

	tomorrow := model.PickupWindow{Start: start.Add(24 * time.Hour), End: end.Add(24 * time.Hour)}
	assert.Equal(t, "Fri 17:30 to 18:00", pickupLabel(tomorrow, now))

	overnight := model.PickupWindow{Start: start, End: end.Add(14 * time.Hour)}
	assert.Equal(t, "today 17:30 to Fri 08:00", pickupLabel(overnight, now))

	assert.Equal(t, "", pickupLabel(model.PickupWindow{}, now))
}

func TestToItemCardViewModel(t *testing.T) {
	now := time.Date(2026, 8, 20, 17, 45, 0, 0, time.Local)
	item := model.Item{
		ItemID:         "item-1",
		DisplayName:    "Beranek's Bakery (Downtown)",
		StoreName:      "Beranek's Bakery",
		ItemsAvailable: 3,
		Price:          model.Amount{MinorUnits: 499, Decimals: 2, Code: "EUR"},
		OriginalValue:  model.Amount{MinorUnits: 1500, Decimals: 2, Code: "EUR"},
		Pickup: model.PickupWindow{
			Start: time.Date(2026, 8, 20, 17, 30, 0, 0, time.Local),
			End:   time.Date(2026, 8, 20, 18, 0, 0, 0, time.Local),
		},
		Origin:     model.ItemOriginFavorites,
		LastSeenAt: now,
	}

	card := toItemCardViewModel(item, true, false, now)

	assert.Equal(t, "Beranek's Bakery (Downtown)", card.Name)
	assert.Equal(t, "/app/items/item-1", card.DetailPath)
	assert.Equal(t, "https://share.toogoodtogo.com/item/item-1", card.ItemURL)
	assert.Contains(t, card.AvailabilityHTML, "3 bags left")
	assert.Equal(t, "4.99 EUR", card.Price)
	assert.Equal(t, "-67%", card.DiscountLabel)
	assert.True(t, card.PickupOpen)
	assert.True(t, card.Tracked)
	assert.False(t, card.Muted)
	assert.False(t, card.SoldOut)
}

func TestToHistoryPointViewModels_NoCurrency(t *testing.T) {
	history := []model.Snapshot{
		{ItemsAvailable: 2, PriceMinorUnits: 499, CapturedAt: time.Now()},
	}

	points := toHistoryPointViewModels(history, model.Amount{})

	assert.Len(t, points, 1)
	assert.Equal(t, "", points[0].Price, "minor units without a currency render nothing")
}
