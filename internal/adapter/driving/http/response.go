package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SensorResponse is the Home Assistant RESTful-sensor representation of a
// listing: a numeric state plus descriptive attributes.
type SensorResponse struct {
	UniqueID   string                   `json:"unique_id"`
	Name       string                   `json:"name"`
	Icon       string                   `json:"icon"`
	Unit       string                   `json:"unit_of_measurement"`
	State      int                      `json:"state"`
	Attributes SensorAttributesResponse `json:"attributes"`
}

// SensorAttributesResponse carries the extra state attributes of a sensor.
// Fields the upstream API did not report are omitted rather than rendered
// as zero values.
type SensorAttributesResponse struct {
	ItemID               string `json:"item_id"`
	ItemURL              string `json:"item_url,omitempty"`
	ItemPrice            string `json:"item_price,omitempty"`
	OriginalValue        string `json:"original_value,omitempty"`
	PickupStart          string `json:"pickup_start,omitempty"`
	PickupEnd            string `json:"pickup_end,omitempty"`
	SoldoutTimestamp     string `json:"soldout_timestamp,omitempty"`
	OrdersPlaced         int    `json:"orders_placed"`
	TotalQuantityOrdered int    `json:"total_quantity_ordered,omitempty"`
	PickupWindowChanged  bool   `json:"pickup_window_changed,omitempty"`
	CancelUntil          string `json:"cancel_until,omitempty"`
	LogoURL              string `json:"logo_url,omitempty"`
	CoverURL             string `json:"cover_url,omitempty"`
}

// TrackResponse is the JSON representation of a tracked listing.
type TrackResponse struct {
	ID          int64  `json:"id"`
	ItemID      string `json:"item_id"`
	Label       string `json:"label,omitempty"`
	MinQuantity int    `json:"min_quantity"`
	Notify      bool   `json:"notify"`
	Notes       string `json:"notes,omitempty"`
	AddedAt     string `json:"added_at"`
}

// TrackRequest is the JSON body for the track endpoint. Notify defaults to
// true when absent.
type TrackRequest struct {
	ItemID      string `json:"item_id"`
	Label       string `json:"label"`
	MinQuantity int    `json:"min_quantity"`
	Notify      *bool  `json:"notify"`
}

// HistoryPointResponse is one availability history point.
type HistoryPointResponse struct {
	ItemsAvailable  int    `json:"items_available"`
	PriceMinorUnits int64  `json:"price_minor_units"`
	CapturedAt      string `json:"captured_at"`
}

// SettingsPayload is the JSON representation of the global watcher settings,
// used for both reads and updates.
type SettingsPayload struct {
	WatchFavorites       bool `json:"watch_favorites"`
	MinItemsAvailable    int  `json:"min_items_available"`
	NotifyOnAvailable    bool `json:"notify_on_available"`
	NotifyOnSoldOut      bool `json:"notify_on_sold_out"`
	NotifyOnPickupChange bool `json:"notify_on_pickup_change"`
}

// WebhookResponse is the JSON representation of an alert webhook target.
// The signing secret is write-only and never rendered back.
type WebhookResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	AddedAt string `json:"added_at"`
}

// AddWebhookRequest is the JSON body for the add webhook endpoint.
type AddWebhookRequest struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Secret  string `json:"secret"`
	Enabled bool   `json:"enabled"`
}

// UpdateWebhookRequest is the JSON body for the update webhook endpoint.
type UpdateWebhookRequest struct {
	Enabled bool `json:"enabled"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Email string `json:"email"`
}

// AuthStatusResponse reports the login flow progress.
type AuthStatusResponse struct {
	State model.AuthState `json:"state"`
	Email string          `json:"email,omitempty"`
}

// RefreshRequest is the JSON body for the manual refresh endpoint. An empty
// item ID requests a full poll cycle.
type RefreshRequest struct {
	ItemID string `json:"item_id"`
}

// statusResponse is a minimal acknowledgement body.
type statusResponse struct {
	Status string `json:"status"`
}

// toSensorResponse converts a domain sensor reading to its JSON representation.
func toSensorResponse(r model.SensorReading) SensorResponse {
	return SensorResponse{
		UniqueID: r.UniqueID,
		Name:     r.Name,
		Icon:     r.Icon,
		Unit:     r.Unit,
		State:    r.State,
		Attributes: SensorAttributesResponse{
			ItemID:               r.Attributes.ItemID,
			ItemURL:              r.Attributes.ItemURL,
			ItemPrice:            r.Attributes.Price,
			OriginalValue:        r.Attributes.OriginalValue,
			PickupStart:          formatTime(r.Attributes.PickupStart),
			PickupEnd:            formatTime(r.Attributes.PickupEnd),
			SoldoutTimestamp:     formatTime(r.Attributes.SoldOutAt),
			OrdersPlaced:         r.Attributes.OrdersPlaced,
			TotalQuantityOrdered: r.Attributes.TotalQuantityOrdered,
			PickupWindowChanged:  r.Attributes.PickupWindowChanged,
			CancelUntil:          formatTime(r.Attributes.CancelUntil),
			LogoURL:              r.Attributes.LogoURL,
			CoverURL:             r.Attributes.CoverURL,
		},
	}
}

// toTrackResponse converts a domain track to its JSON representation.
func toTrackResponse(t model.Track) TrackResponse {
	return TrackResponse{
		ID:          t.ID,
		ItemID:      t.ItemID,
		Label:       t.Label,
		MinQuantity: t.MinQuantity,
		Notify:      t.Notify,
		Notes:       t.Notes,
		AddedAt:     t.AddedAt.UTC().Format(time.RFC3339),
	}
}

// toHistoryPointResponse converts a history snapshot to its JSON representation.
func toHistoryPointResponse(s model.Snapshot) HistoryPointResponse {
	return HistoryPointResponse{
		ItemsAvailable:  s.ItemsAvailable,
		PriceMinorUnits: s.PriceMinorUnits,
		CapturedAt:      s.CapturedAt.UTC().Format(time.RFC3339),
	}
}

// toSettingsPayload converts domain settings to their JSON representation.
func toSettingsPayload(s model.Settings) SettingsPayload {
	return SettingsPayload{
		WatchFavorites:       s.WatchFavorites,
		MinItemsAvailable:    s.MinItemsAvailable,
		NotifyOnAvailable:    s.NotifyOnAvailable,
		NotifyOnSoldOut:      s.NotifyOnSoldOut,
		NotifyOnPickupChange: s.NotifyOnPickupChange,
	}
}

// toSettings converts a JSON settings payload back to the domain model.
func toSettings(p SettingsPayload) model.Settings {
	return model.Settings{
		WatchFavorites:       p.WatchFavorites,
		MinItemsAvailable:    p.MinItemsAvailable,
		NotifyOnAvailable:    p.NotifyOnAvailable,
		NotifyOnSoldOut:      p.NotifyOnSoldOut,
		NotifyOnPickupChange: p.NotifyOnPickupChange,
	}
}

// toWebhookResponse converts a domain webhook to its JSON representation.
func toWebhookResponse(h model.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:      h.ID,
		Name:    h.Name,
		URL:     h.URL,
		Enabled: h.Enabled,
		AddedAt: h.AddedAt.UTC().Format(time.RFC3339),
	}
}

// formatTime renders a timestamp as RFC 3339 in UTC, or "" for the zero
// value so the attribute is omitted.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
