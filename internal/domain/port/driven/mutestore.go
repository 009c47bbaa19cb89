package driven

import (
	"context"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// MuteStore defines the driven port for managing the alert mute list.
// Mute is idempotent — muting an already-muted listing is a no-op.
type MuteStore interface {
	Mute(ctx context.Context, itemID string) error
	Unmute(ctx context.Context, itemID string) error
	IsMuted(ctx context.Context, itemID string) (bool, error)
	ListMuted(ctx context.Context) ([]model.MutedItem, error)
}
