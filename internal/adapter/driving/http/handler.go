// Package httphandler is the HTTP driving adapter. It serves the REST API
// consumed by Home Assistant, the web panel, and tgtgctl.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// defaultHistoryWindow bounds the history endpoint when no range is given.
const defaultHistoryWindow = 24 * time.Hour

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	sensors  *application.SensorService
	tracks   *application.TrackService
	poll     *application.PollService
	auth     *application.AuthService
	health   *application.HealthService
	settings driven.SettingsStore
	mutes    driven.MuteStore
	webhooks driven.WebhookStore
	notifier driven.AlertNotifier
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	sensors *application.SensorService,
	tracks *application.TrackService,
	poll *application.PollService,
	auth *application.AuthService,
	health *application.HealthService,
	settings driven.SettingsStore,
	mutes driven.MuteStore,
	webhooks driven.WebhookStore,
	notifier driven.AlertNotifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sensors:  sensors,
		tracks:   tracks,
		poll:     poll,
		auth:     auth,
		health:   health,
		settings: settings,
		mutes:    mutes,
		webhooks: webhooks,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers all REST API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/items", h.ListItems)
	mux.HandleFunc("GET /api/v1/items/{id}", h.GetItem)
	mux.HandleFunc("GET /api/v1/items/{id}/history", h.GetItemHistory)
	mux.HandleFunc("POST /api/v1/items", h.TrackItem)
	mux.HandleFunc("DELETE /api/v1/items/{id}", h.UntrackItem)
	mux.HandleFunc("POST /api/v1/items/{id}/mute", h.MuteItem)
	mux.HandleFunc("DELETE /api/v1/items/{id}/mute", h.UnmuteItem)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/auth/status", h.AuthStatus)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.UpdateSettings)
	mux.HandleFunc("GET /api/v1/webhooks", h.ListWebhooks)
	mux.HandleFunc("POST /api/v1/webhooks", h.AddWebhook)
	mux.HandleFunc("PUT /api/v1/webhooks/{name}", h.UpdateWebhook)
	mux.HandleFunc("DELETE /api/v1/webhooks/{name}", h.RemoveWebhook)
	mux.HandleFunc("POST /api/v1/webhooks/{name}/test", h.TestWebhook)
}

// ApplyMiddleware wraps next with the request-id, logging, metrics, and
// recovery middleware. metrics may be nil when the exporter is disabled.
func ApplyMiddleware(next http.Handler, metrics *Metrics, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	if metrics != nil {
		wrapped = metricsMiddleware(metrics, wrapped)
	}
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// NewServeMux creates an http.Handler with all API routes registered and
// wrapped with the full middleware chain. metrics may be nil when the
// exporter is disabled.
func NewServeMux(h *Handler, metrics *Metrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.ExporterHandler())
	}

	return ApplyMiddleware(mux, metrics, logger)
}

// ListItems returns the sensor views for all watched listings.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	readings, err := h.sensors.Readings(r.Context())
	if err != nil {
		h.logger.Error("failed to list listings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SensorResponse, 0, len(readings))
	for _, reading := range readings {
		resp = append(resp, toSensorResponse(reading))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetItem returns the sensor view for a single listing.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	reading, err := h.sensors.Reading(r.Context(), itemID)
	if err != nil {
		h.logger.Error("failed to load listing", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if reading == nil {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}

	writeJSON(w, http.StatusOK, toSensorResponse(*reading))
}

// GetItemHistory returns the availability history of a listing. The optional
// since query parameter is a duration like "72h"; the default covers the
// last 24 hours.
func (h *Handler) GetItemHistory(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	window := defaultHistoryWindow
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid since duration")
			return
		}
		window = parsed
	}

	points, err := h.sensors.History(r.Context(), itemID, time.Now().Add(-window))
	if err != nil {
		h.logger.Error("failed to load history", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]HistoryPointResponse, 0, len(points))
	for _, point := range points {
		resp = append(resp, toHistoryPointResponse(point))
	}

	writeJSON(w, http.StatusOK, resp)
}

// TrackItem starts watching a listing by item ID.
func (h *Handler) TrackItem(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if req.MinQuantity < 0 {
		writeError(w, http.StatusBadRequest, "min_quantity must not be negative")
		return
	}

	notify := true
	if req.Notify != nil {
		notify = *req.Notify
	}

	track, err := h.tracks.Track(r.Context(), itemID, strings.TrimSpace(req.Label), req.MinQuantity, notify)
	switch {
	case errors.Is(err, application.ErrNoCredentials):
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	case errors.Is(err, driven.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "no listing with this item id")
		return
	case errors.Is(err, driven.ErrTrackAlreadyExists):
		writeError(w, http.StatusConflict, "listing already tracked")
		return
	case err != nil:
		h.logger.Error("failed to track listing", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toTrackResponse(*track))
}

// UntrackItem stops watching a listing.
func (h *Handler) UntrackItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	err := h.tracks.Untrack(r.Context(), itemID)
	switch {
	case errors.Is(err, driven.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, "listing not tracked")
		return
	case err != nil:
		h.logger.Error("failed to untrack listing", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MuteItem excludes a listing from alerts. Muting twice is a no-op.
func (h *Handler) MuteItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	if err := h.mutes.Mute(r.Context(), itemID); err != nil {
		h.logger.Error("failed to mute listing", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnmuteItem re-enables alerts for a listing.
func (h *Handler) UnmuteItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	if err := h.mutes.Unmute(r.Context(), itemID); err != nil {
		h.logger.Error("failed to unmute listing", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Refresh runs a poll on demand and waits for it to finish. An item_id in
// the body restricts the refresh to that listing.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	if req.ItemID == "" {
		err = h.poll.RefreshAll(r.Context())
	} else {
		err = h.poll.RefreshItem(r.Context(), req.ItemID)
	}
	switch {
	case errors.Is(err, application.ErrNoCredentials):
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	case errors.Is(err, driven.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "no listing with this item id")
		return
	case err != nil:
		h.logger.Error("manual refresh failed", "item_id", req.ItemID, "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Health returns the aggregated health report. The status code is always
// 200; degradation is reported in the body so a container probe only fails
// when the process stops serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.health.Report(r.Context()))
}

// AuthStatus reports the login flow progress.
func (h *Handler) AuthStatus(w http.ResponseWriter, _ *http.Request) {
	state, email := h.auth.Status()
	writeJSON(w, http.StatusOK, AuthStatusResponse{State: state, Email: email})
}

// Login starts the email login flow and returns immediately. The flow keeps
// polling in the background for up to two minutes while the user clicks the
// link in their mailbox; progress is visible on the status endpoint.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email address is required")
		return
	}

	// The login outlives this request on purpose: the user still has to
	// click the link in the mail.
	go func() {
		if err := h.auth.Login(context.Background(), email); err != nil {
			h.logger.Error("email login failed", "email", email, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, AuthStatusResponse{State: model.AuthStatePending, Email: email})
}

// Logout drops the stored credentials and deactivates the API client.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the global watcher settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsPayload(settings))
}

// UpdateSettings replaces the global watcher settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MinItemsAvailable < 0 {
		writeError(w, http.StatusBadRequest, "min_items_available must not be negative")
		return
	}

	if err := h.settings.SetSettings(r.Context(), toSettings(req)); err != nil {
		h.logger.Error("failed to store settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, req)
}
