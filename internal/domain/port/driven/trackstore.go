package driven

import (
	"context"
	"errors"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// Sentinel errors returned by TrackStore implementations.
var (
	// ErrTrackNotFound indicates the requested track does not exist.
	ErrTrackNotFound = errors.New("track not found")

	// ErrTrackAlreadyExists indicates a track for the same item ID already exists.
	ErrTrackAlreadyExists = errors.New("track already exists")
)

// TrackStore defines the driven port for tracked-listing persistence.
// Add returns ErrTrackAlreadyExists if the item is already tracked.
// Remove and Update return ErrTrackNotFound if the track does not exist.
type TrackStore interface {
	Add(ctx context.Context, track model.Track) (model.Track, error)
	Remove(ctx context.Context, itemID string) error
	Update(ctx context.Context, track model.Track) error
	GetByItemID(ctx context.Context, itemID string) (*model.Track, error)
	ListAll(ctx context.Context) ([]model.Track, error)
}
