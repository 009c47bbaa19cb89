package driven

import (
	"context"
	"errors"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// Sentinel errors returned by WebhookStore implementations.
var (
	// ErrWebhookNotFound indicates the requested webhook does not exist.
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrWebhookAlreadyExists indicates a webhook with the same name already exists.
	ErrWebhookAlreadyExists = errors.New("webhook already exists")
)

// WebhookStore defines the driven port for managing alert webhook targets.
// Add returns ErrWebhookAlreadyExists if the name already exists.
// Remove and SetEnabled return ErrWebhookNotFound if the webhook does not exist.
type WebhookStore interface {
	Add(ctx context.Context, hook model.Webhook) (model.Webhook, error)
	Remove(ctx context.Context, name string) error
	SetEnabled(ctx context.Context, name string, enabled bool) error
	ListAll(ctx context.Context) ([]model.Webhook, error)
	// ListEnabled returns only enabled targets, ordered alphabetically by name.
	ListEnabled(ctx context.Context) ([]model.Webhook, error)
}
