package driven

import (
	"context"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// SnapshotStore defines the driven port for availability-history persistence.
type SnapshotStore interface {
	// Append stores one history point for a listing.
	Append(ctx context.Context, snapshot model.Snapshot) error
	// Latest returns the most recent history point for a listing, or nil
	// when none exists.
	Latest(ctx context.Context, itemID string) (*model.Snapshot, error)
	// ListByItem returns history points for a listing captured at or after
	// since, oldest first.
	ListByItem(ctx context.Context, itemID string, since time.Time) ([]model.Snapshot, error)
	// PruneBefore removes history points older than the cutoff and returns
	// the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
