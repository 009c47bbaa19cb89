package driven

import (
	"context"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// ItemStore defines the driven port for listing persistence.
type ItemStore interface {
	Upsert(ctx context.Context, item model.Item) error
	GetByID(ctx context.Context, itemID string) (*model.Item, error)
	ListAll(ctx context.Context) ([]model.Item, error)
	ListAvailable(ctx context.Context) ([]model.Item, error)
	Delete(ctx context.Context, itemID string) error
	// DeleteStaleFavorites removes favorites-origin listings not seen since
	// the cutoff. Manually tracked listings are never removed here.
	DeleteStaleFavorites(ctx context.Context, seenBefore time.Time) (int64, error)
}
