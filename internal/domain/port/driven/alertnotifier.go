package driven

import (
	"context"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
)

// AlertNotifier defines the driven port for outbound alert delivery.
// It is intentionally separate from the stores: delivery targets external
// systems and may fail independently of persistence.
type AlertNotifier interface {
	// Send delivers the event to the given webhook target. Implementations
	// retry transient failures; a returned error is final.
	Send(ctx context.Context, hook model.Webhook, event model.AlertEvent) error
}
