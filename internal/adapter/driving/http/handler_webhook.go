package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// ListWebhooks returns all configured alert webhook targets.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.webhooks.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list webhooks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]WebhookResponse, 0, len(hooks))
	for _, hook := range hooks {
		resp = append(resp, toWebhookResponse(hook))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddWebhook adds a new alert webhook target.
func (h *Handler) AddWebhook(w http.ResponseWriter, r *http.Request) {
	var req AddWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !isValidWebhookURL(req.URL) {
		writeError(w, http.StatusBadRequest, "url must be a valid http or https address")
		return
	}

	hook := model.Webhook{
		Name:    name,
		URL:     req.URL,
		Secret:  req.Secret,
		Enabled: req.Enabled,
		AddedAt: time.Now().UTC(),
	}

	saved, err := h.webhooks.Add(r.Context(), hook)
	switch {
	case errors.Is(err, driven.ErrWebhookAlreadyExists):
		writeError(w, http.StatusConflict, "webhook name already exists")
		return
	case err != nil:
		h.logger.Error("failed to add webhook", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toWebhookResponse(saved))
}

// UpdateWebhook toggles a webhook target on or off.
func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req UpdateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.webhooks.SetEnabled(r.Context(), name, req.Enabled)
	switch {
	case errors.Is(err, driven.ErrWebhookNotFound):
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	case err != nil:
		h.logger.Error("failed to update webhook", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveWebhook removes an alert webhook target.
func (h *Handler) RemoveWebhook(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	err := h.webhooks.Remove(r.Context(), name)
	switch {
	case errors.Is(err, driven.ErrWebhookNotFound):
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	case err != nil:
		h.logger.Error("failed to remove webhook", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestWebhook delivers a synthetic alert to one webhook target so its
// configuration can be verified without waiting for a real deal.
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	hooks, err := h.webhooks.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list webhooks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var target *model.Webhook
	for i := range hooks {
		if hooks[i].Name == name {
			target = &hooks[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	}

	event := model.AlertEvent{
		Type: model.EventItemAvailable,
		Item: model.Item{
			ItemID:      "test",
			DisplayName: "Test delivery",
		},
		Message:    "test alert, your webhook is wired up",
		OccurredAt: time.Now().UTC(),
	}

	if err := h.notifier.Send(r.Context(), *target, event); err != nil {
		h.logger.Error("webhook test delivery failed", "name", name, "error", err)
		writeError(w, http.StatusBadGateway, "delivery failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "delivered"})
}

// isValidWebhookURL validates that raw parses as an absolute http or https URL.
func isValidWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
