// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/web/templates"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/web/templates/pages"
	vm "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/web/viewmodel"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// detailHistoryWindow bounds the availability history shown on the detail page.
const detailHistoryWindow = 48 * time.Hour

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	itemStore     driven.ItemStore
	trackStore    driven.TrackStore
	muteStore     driven.MuteStore
	settingsStore driven.SettingsStore
	webhookStore  driven.WebhookStore
	sensorSvc     *application.SensorService
	trackSvc      *application.TrackService
	pollSvc       *application.PollService
	authSvc       *application.AuthService
	healthSvc     *application.HealthService
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	itemStore driven.ItemStore,
	trackStore driven.TrackStore,
	muteStore driven.MuteStore,
	settingsStore driven.SettingsStore,
	webhookStore driven.WebhookStore,
	sensorSvc *application.SensorService,
	trackSvc *application.TrackService,
	pollSvc *application.PollService,
	authSvc *application.AuthService,
	healthSvc *application.HealthService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		itemStore:     itemStore,
		trackStore:    trackStore,
		muteStore:     muteStore,
		settingsStore: settingsStore,
		webhookStore:  webhookStore,
		sensorSvc:     sensorSvc,
		trackSvc:      trackSvc,
		pollSvc:       pollSvc,
		authSvc:       authSvc,
		healthSvc:     healthSvc,
		logger:        logger,
	}
}

// render wraps a page component in the layout and writes it out.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, title string, content templ.Component) {
	layout := templates.Layout(title, content)
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Dashboard renders the listing grid with the poll and login status header.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	csrfToken(w, r)

	items, err := h.itemStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list listings", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	tracked := h.trackedSet(r.Context())
	muted := h.mutedSet(r.Context())

	now := time.Now()
	available := 0
	cards := make([]vm.ItemCardViewModel, 0, len(items))
	for _, item := range items {
		if item.ItemsAvailable > 0 {
			available++
		}
		cards = append(cards, toItemCardViewModel(item, tracked[item.ItemID], muted[item.ItemID], now))
	}

	// Listings with stock first, alphabetical within each group.
	sort.SliceStable(cards, func(i, j int) bool {
		iHas, jHas := cards[i].ItemsAvailable > 0, cards[j].ItemsAvailable > 0
		if iHas != jHas {
			return iHas
		}
		return cards[i].Name < cards[j].Name
	})

	data := vm.DashboardViewModel{
		Cards:          cards,
		AvailableCount: available,
		Auth:           h.authViewModel(),
		Poll:           h.pollViewModel(r.Context()),
	}

	h.render(w, r, "TGTG Watcher", pages.Dashboard(data))
}

// ItemDetail renders the full view of a single listing including its
// availability history.
func (h *Handler) ItemDetail(w http.ResponseWriter, r *http.Request) {
	csrfToken(w, r)
	itemID := r.PathValue("id")

	item, err := h.itemStore.GetByID(r.Context(), itemID)
	if err != nil {
		h.logger.Error("failed to load listing", "item_id", itemID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}

	reading, err := h.sensorSvc.Reading(r.Context(), itemID)
	if err != nil || reading == nil {
		// Order enrichment is optional on this page.
		fallback := model.BuildSensorReading(*item, model.OrderSummary{})
		reading = &fallback
	}

	history, err := h.sensorSvc.History(r.Context(), itemID, time.Now().Add(-detailHistoryWindow))
	if err != nil {
		h.logger.Warn("failed to load history", "item_id", itemID, "error", err)
	}

	track, err := h.trackStore.GetByItemID(r.Context(), itemID)
	if err != nil {
		h.logger.Warn("failed to load track state", "item_id", itemID, "error", err)
	}
	mutedFlag, err := h.muteStore.IsMuted(r.Context(), itemID)
	if err != nil {
		h.logger.Warn("failed to load mute state", "item_id", itemID, "error", err)
	}

	data := toItemDetailViewModel(*item, *reading, history, track != nil, mutedFlag, time.Now())
	h.render(w, r, item.DisplayName+" | TGTG Watcher", pages.ItemDetail(data))
}

// SettingsPage renders account, watcher settings, tracked listings, and
// webhook targets.
func (h *Handler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	csrfToken(w, r)

	cfg, err := h.settingsStore.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		cfg = model.DefaultSettings()
	}

	tracks, err := h.trackStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list tracks", "error", err)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ItemID < tracks[j].ItemID })

	hooks, err := h.webhookStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list webhook targets", "error", err)
	}

	data := vm.SettingsPageViewModel{
		Auth:     h.authViewModel(),
		Form:     toSettingsFormViewModel(cfg),
		Tracks:   toTrackRowViewModels(tracks),
		Webhooks: toWebhookRowViewModels(hooks),
	}

	h.render(w, r, "Settings | TGTG Watcher", pages.Settings(data))
}

// RefreshAction triggers a full poll cycle from the dashboard button.
func (h *Handler) RefreshAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	if err := h.pollSvc.RefreshAll(r.Context()); err != nil {
		h.logger.Error("manual refresh failed", "error", err)
	}
	redirectBack(w, r, "/")
}

// RefreshItemAction re-fetches a single listing from its detail page.
func (h *Handler) RefreshItemAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	itemID := r.PathValue("id")
	if err := h.pollSvc.RefreshItem(r.Context(), itemID); err != nil {
		h.logger.Error("manual refresh failed", "item_id", itemID, "error", err)
	}
	redirectBack(w, r, "/app/items/"+url.PathEscape(itemID))
}

// AddTrackAction starts watching a listing entered in the settings form.
func (h *Handler) AddTrackAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	itemID := strings.TrimSpace(r.FormValue("item_id"))
	if itemID == "" {
		http.Error(w, "item_id is required", http.StatusBadRequest)
		return
	}
	minQuantity, _ := strconv.Atoi(r.FormValue("min_quantity"))
	if minQuantity < 0 {
		minQuantity = 0
	}

	h.track(r.Context(), itemID, strings.TrimSpace(r.FormValue("label")), minQuantity)
	redirectBack(w, r, "/app/settings")
}

// TrackAction starts watching the listing shown on the detail page.
func (h *Handler) TrackAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	itemID := r.PathValue("id")
	h.track(r.Context(), itemID, "", 0)
	redirectBack(w, r, "/app/items/"+url.PathEscape(itemID))
}

func (h *Handler) track(ctx context.Context, itemID, label string, minQuantity int) {
	if _, err := h.trackSvc.Track(ctx, itemID, label, minQuantity, true); err != nil {
		h.logger.Error("failed to track listing", "item_id", itemID, "error", err)
	}
}

// UntrackAction stops watching a listing.
func (h *Handler) UntrackAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	itemID := r.PathValue("id")
	if err := h.trackSvc.Untrack(r.Context(), itemID); err != nil {
		h.logger.Error("failed to untrack listing", "item_id", itemID, "error", err)
	}
	redirectBack(w, r, "/app/settings")
}

// MuteAction excludes a listing from alerts.
func (h *Handler) MuteAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	itemID := r.PathValue("id")
	if err := h.muteStore.Mute(r.Context(), itemID); err != nil {
		h.logger.Error("failed to mute listing", "item_id", itemID, "error", err)
	}
	redirectBack(w, r, "/app/items/"+url.PathEscape(itemID))
}

// UnmuteAction re-enables alerts for a listing.
func (h *Handler) UnmuteAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	itemID := r.PathValue("id")
	if err := h.muteStore.Unmute(r.Context(), itemID); err != nil {
		h.logger.Error("failed to unmute listing", "item_id", itemID, "error", err)
	}
	redirectBack(w, r, "/app/items/"+url.PathEscape(itemID))
}

// LoginAction starts the email login flow. The flow keeps polling in the
// background while the user clicks the link in their mailbox; the settings
// page shows the progress.
func (h *Handler) LoginAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" || !strings.Contains(email, "@") {
		http.Error(w, "a valid email address is required", http.StatusBadRequest)
		return
	}

	go func() {
		if err := h.authSvc.Login(context.Background(), email); err != nil {
			h.logger.Error("email login failed", "email", email, "error", err)
		}
	}()

	redirectBack(w, r, "/app/settings")
}

// LogoutAction drops the stored credentials and deactivates the API client.
func (h *Handler) LogoutAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	if err := h.authSvc.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", "error", err)
	}
	redirectBack(w, r, "/app/settings")
}

// SaveSettingsAction replaces the global watcher settings from the form.
func (h *Handler) SaveSettingsAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	minItems, err := strconv.Atoi(r.FormValue("min_items_available"))
	if err != nil || minItems < 0 {
		http.Error(w, "min_items_available must be a non-negative number", http.StatusBadRequest)
		return
	}

	cfg := model.Settings{
		WatchFavorites:       r.FormValue("watch_favorites") == "on",
		MinItemsAvailable:    minItems,
		NotifyOnAvailable:    r.FormValue("notify_on_available") == "on",
		NotifyOnSoldOut:      r.FormValue("notify_on_sold_out") == "on",
		NotifyOnPickupChange: r.FormValue("notify_on_pickup_change") == "on",
	}
	if err := h.settingsStore.SetSettings(r.Context(), cfg); err != nil {
		h.logger.Error("failed to store settings", "error", err)
	}

	redirectBack(w, r, "/app/settings")
}

// AddWebhookAction registers a new alert target from the settings form.
func (h *Handler) AddWebhookAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	target := strings.TrimSpace(r.FormValue("url"))
	if name == "" || !isWebhookURL(target) {
		http.Error(w, "a name and an http(s) url are required", http.StatusBadRequest)
		return
	}

	hook := model.Webhook{
		Name:    name,
		URL:     target,
		Secret:  r.FormValue("secret"),
		Enabled: true,
	}
	if _, err := h.webhookStore.Add(r.Context(), hook); err != nil {
		h.logger.Error("failed to add webhook target", "name", name, "error", err)
	}

	redirectBack(w, r, "/app/settings")
}

// ToggleWebhookAction flips an alert target between enabled and disabled.
func (h *Handler) ToggleWebhookAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	name := r.PathValue("name")
	hooks, err := h.webhookStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list webhook targets", "error", err)
		redirectBack(w, r, "/app/settings")
		return
	}
	for _, hook := range hooks {
		if hook.Name == name {
			if err := h.webhookStore.SetEnabled(r.Context(), name, !hook.Enabled); err != nil {
				h.logger.Error("failed to toggle webhook target", "name", name, "error", err)
			}
			break
		}
	}

	redirectBack(w, r, "/app/settings")
}

// DeleteWebhookAction removes an alert target.
func (h *Handler) DeleteWebhookAction(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}

	name := r.PathValue("name")
	if err := h.webhookStore.Remove(r.Context(), name); err != nil {
		h.logger.Error("failed to remove webhook target", "name", name, "error", err)
	}

	redirectBack(w, r, "/app/settings")
}

// requireCSRF rejects the request with 403 unless it carries a valid token.
func (h *Handler) requireCSRF(w http.ResponseWriter, r *http.Request) bool {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return false
	}
	return true
}

// trackedSet returns the set of tracked item IDs, empty on store errors.
func (h *Handler) trackedSet(ctx context.Context) map[string]bool {
	set := make(map[string]bool)
	tracks, err := h.trackStore.ListAll(ctx)
	if err != nil {
		h.logger.Warn("failed to list tracks", "error", err)
		return set
	}
	for _, track := range tracks {
		set[track.ItemID] = true
	}
	return set
}

// mutedSet returns the set of muted item IDs, empty on store errors.
func (h *Handler) mutedSet(ctx context.Context) map[string]bool {
	set := make(map[string]bool)
	muted, err := h.muteStore.ListMuted(ctx)
	if err != nil {
		h.logger.Warn("failed to list muted listings", "error", err)
		return set
	}
	for _, m := range muted {
		set[m.ItemID] = true
	}
	return set
}

func (h *Handler) authViewModel() vm.AuthViewModel {
	state, email := h.authSvc.Status()
	return toAuthViewModel(state, email)
}

func (h *Handler) pollViewModel(ctx context.Context) vm.PollStatusViewModel {
	report := h.healthSvc.Report(ctx)
	return toPollStatusViewModel(h.pollSvc.Status(), report.Healthy())
}

// redirectBack sends the browser to the page the form was posted from,
// falling back to the given path. Only the path and query of the referer are
// used, never its host.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref := r.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			target = u.RequestURI()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// isWebhookURL reports whether raw is an absolute http(s) URL.
func isWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
