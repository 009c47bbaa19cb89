package driven

import (
	"context"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// SettingsStore defines the driven port for global watcher settings persistence.
type SettingsStore interface {
	// GetSettings returns the current global settings.
	// Returns model.DefaultSettings() if no settings have been saved.
	GetSettings(ctx context.Context) (model.Settings, error)

	// SetSettings persists the global settings.
	SetSettings(ctx context.Context, settings model.Settings) error
}
