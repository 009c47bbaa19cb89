package web

import (
	"fmt"
	"math"
	"net/url"
	"time"

	vm "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/web/viewmodel"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// toItemCardViewModel converts a domain listing to its dashboard card.
func toItemCardViewModel(item model.Item, tracked, muted bool, now time.Time) vm.ItemCardViewModel {
	return vm.ItemCardViewModel{
		ItemID:           item.ItemID,
		Name:             item.DisplayName,
		StoreName:        item.StoreName,
		ItemsAvailable:   item.ItemsAvailable,
		AvailabilityHTML: RenderAvailabilityBadge(item.ItemsAvailable),
		Price:            item.Price.String(),
		OriginalValue:    item.OriginalValue.String(),
		DiscountLabel:    discountLabel(item.Price, item.OriginalValue),
		PickupLabel:      pickupLabel(item.Pickup, now),
		PickupOpen:       item.PickupOpen(now),
		SoldOut:          item.State() == model.ItemStateSoldOut,
		Origin:           string(item.Origin),
		Tracked:          tracked,
		Muted:            muted,
		LogoURL:          item.LogoURL,
		ItemURL:          item.ShareURL(),
		DetailPath:       "/app/items/" + url.PathEscape(item.ItemID),
	}
}

// toItemDetailViewModel converts domain data into the fully enriched detail
// page model. The reading carries the order summary computed by the sensor
// service.
func toItemDetailViewModel(
	item model.Item,
	reading model.SensorReading,
	history []model.Snapshot,
	tracked, muted bool,
	now time.Time,
) vm.ItemDetailViewModel {
	card := toItemCardViewModel(item, tracked, muted, now)
	base := "/app/items/" + url.PathEscape(item.ItemID)

	return vm.ItemDetailViewModel{
		ItemCardViewModel: card,

		DescriptionHTML:     RenderMarkdown(item.Description),
		CoverURL:            item.CoverURL,
		RatingLabel:         ratingLabel(item.Rating, item.RatingCount),
		FirstSeen:           formatStamp(item.FirstSeenAt),
		LastSeen:            formatStamp(item.LastSeenAt),
		LastAvailable:       formatStamp(item.LastAvailableAt),
		SoldOutAt:           formatStamp(item.SoldOutAt),
		OrdersPlaced:        reading.Attributes.OrdersPlaced,
		TotalQuantity:       reading.Attributes.TotalQuantityOrdered,
		PickupWindowChanged: reading.Attributes.PickupWindowChanged,
		CancelUntil:         formatStamp(reading.Attributes.CancelUntil),

		History: toHistoryPointViewModels(history, item.Price),

		TrackPath:   base + "/track",
		UntrackPath: base + "/untrack",
		MutePath:    base + "/mute",
		UnmutePath:  base + "/unmute",
		RefreshPath: base + "/refresh",
	}
}

// toHistoryPointViewModels converts history snapshots to table rows. The
// reference amount supplies the currency; snapshots store minor units only.
func toHistoryPointViewModels(history []model.Snapshot, reference model.Amount) []vm.HistoryPointViewModel {
	vms := make([]vm.HistoryPointViewModel, 0, len(history))
	for _, snap := range history {
		price := ""
		if reference.Code != "" {
			price = model.Amount{
				MinorUnits: snap.PriceMinorUnits,
				Decimals:   reference.Decimals,
				Code:       reference.Code,
			}.String()
		}
		vms = append(vms, vm.HistoryPointViewModel{
			CapturedAt:     formatStamp(snap.CapturedAt),
			ItemsAvailable: snap.ItemsAvailable,
			Price:          price,
		})
	}
	return vms
}

// toTrackRowViewModels converts tracked listings to settings manager rows.
func toTrackRowViewModels(tracks []model.Track) []vm.TrackRowViewModel {
	vms := make([]vm.TrackRowViewModel, 0, len(tracks))
	for _, track := range tracks {
		base := "/app/items/" + url.PathEscape(track.ItemID)
		vms = append(vms, vm.TrackRowViewModel{
			ItemID:      track.ItemID,
			Label:       track.Label,
			MinQuantity: track.MinQuantity,
			Notify:      track.Notify,
			AddedAt:     formatStamp(track.AddedAt),
			DetailPath:  base,
			UntrackPath: base + "/untrack",
		})
	}
	return vms
}

// toWebhookRowViewModels converts alert targets to settings manager rows.
func toWebhookRowViewModels(hooks []model.Webhook) []vm.WebhookRowViewModel {
	vms := make([]vm.WebhookRowViewModel, 0, len(hooks))
	for _, hook := range hooks {
		base := "/app/webhooks/" + url.PathEscape(hook.Name)
		vms = append(vms, vm.WebhookRowViewModel{
			Name:       hook.Name,
			URL:        hook.URL,
			Enabled:    hook.Enabled,
			TogglePath: base + "/toggle",
			DeletePath: base + "/delete",
		})
	}
	return vms
}

// toSettingsFormViewModel converts domain settings to the settings form.
func toSettingsFormViewModel(s model.Settings) vm.SettingsFormViewModel {
	return vm.SettingsFormViewModel{
		WatchFavorites:       s.WatchFavorites,
		MinItemsAvailable:    s.MinItemsAvailable,
		NotifyOnAvailable:    s.NotifyOnAvailable,
		NotifyOnSoldOut:      s.NotifyOnSoldOut,
		NotifyOnPickupChange: s.NotifyOnPickupChange,
	}
}

// toAuthViewModel converts the login state to its header and account view.
func toAuthViewModel(state model.AuthState, email string) vm.AuthViewModel {
	return vm.AuthViewModel{
		State:    string(state),
		Email:    email,
		LoggedIn: state == model.AuthStateAuthorized,
		Pending:  state == model.AuthStatePending,
	}
}

// toPollStatusViewModel converts the poll loop snapshot to the header chip.
func toPollStatusViewModel(status application.PollStatus, healthy bool) vm.PollStatusViewModel {
	lastPoll := ""
	if !status.LastPollAt.IsZero() {
		lastPoll = status.LastPollAt.Local().Format("15:04:05")
	}
	return vm.PollStatusViewModel{
		LastPoll: lastPoll,
		Listings: status.ListingCount,
		Tier:     status.Tier.String(),
		Degraded: !healthy,
	}
}

// discountLabel renders the saving against the retail value, e.g. "-67%".
func discountLabel(price, original model.Amount) string {
	if price.IsZero() || original.IsZero() || original.Units() <= 0 {
		return ""
	}
	percent := 100 - int(math.Round(price.Units()/original.Units()*100))
	if percent <= 0 {
		return ""
	}
	return fmt.Sprintf("-%d%%", percent)
}

// pickupLabel renders the collection window, e.g. "today 17:30 to 18:00".
func pickupLabel(w model.PickupWindow, now time.Time) string {
	if w.IsZero() {
		return ""
	}

	start := w.Start.Local()
	end := w.End.Local()
	local := now.Local()

	day := start.Format("Mon")
	if sameDay(start, local) {
		day = "today"
	}

	endLabel := end.Format("15:04")
	if !sameDay(start, end) {
		endLabel = end.Format("Mon 15:04")
	}

	return fmt.Sprintf("%s %s to %s", day, start.Format("15:04"), endLabel)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ratingLabel renders the store rating, e.g. "4.3 (128 ratings)".
func ratingLabel(rating float64, count int) string {
	if count == 0 || rating == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f (%d ratings)", rating, count)
}

// formatStamp renders a timestamp for the panel, or "" for the zero value.
func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
