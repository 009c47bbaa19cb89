package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Web routes serve HTML at / and /app/* paths; form actions are POSTs under
// /app/* guarded by the CSRF token. Static assets are served from the
// embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Dashboard)
	mux.HandleFunc("GET /app/items/{id}", h.ItemDetail)
	mux.HandleFunc("GET /app/settings", h.SettingsPage)

	// Form actions.
	mux.HandleFunc("POST /app/refresh", h.RefreshAction)
	mux.HandleFunc("POST /app/tracks", h.AddTrackAction)
	mux.HandleFunc("POST /app/items/{id}/track", h.TrackAction)
	mux.HandleFunc("POST /app/items/{id}/untrack", h.UntrackAction)
	mux.HandleFunc("POST /app/items/{id}/mute", h.MuteAction)
	mux.HandleFunc("POST /app/items/{id}/unmute", h.UnmuteAction)
	mux.HandleFunc("POST /app/items/{id}/refresh", h.RefreshItemAction)
	mux.HandleFunc("POST /app/login", h.LoginAction)
	mux.HandleFunc("POST /app/logout", h.LogoutAction)
	mux.HandleFunc("POST /app/settings", h.SaveSettingsAction)
	mux.HandleFunc("POST /app/webhooks", h.AddWebhookAction)
	mux.HandleFunc("POST /app/webhooks/{name}/toggle", h.ToggleWebhookAction)
	mux.HandleFunc("POST /app/webhooks/{name}/delete", h.DeleteWebhookAction)
}
