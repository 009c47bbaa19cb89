// Package webhook delivers alert events to configured HTTP targets.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AlertNotifier = (*Notifier)(nil)

const (
	// signatureHeader carries the HMAC-SHA256 of the request body when the
	// target has a shared secret configured.
	signatureHeader = "X-Signature-256"

	deliveryTimeout = 10 * time.Second
	retryInterval   = 2 * time.Second
	maxRetries      = 2
)

// Notifier posts alert events as JSON to webhook targets. Transient failures
// (network errors, 5xx, 429) are retried with a constant backoff; client
// errors fail immediately.
type Notifier struct {
	rc *resty.Client
}

// NewNotifier creates a webhook notifier.
func NewNotifier() *Notifier {
	rc := resty.New().
		SetTimeout(deliveryTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "tgtg-watcher/1.0")

	return &Notifier{rc: rc}
}

// eventPayload is the JSON body delivered to targets.
type eventPayload struct {
	Event      string      `json:"event"`
	Message    string      `json:"message"`
	OccurredAt time.Time   `json:"occurred_at"`
	Item       itemPayload `json:"item"`
	Signals    []string    `json:"signals,omitempty"`
}

type itemPayload struct {
	ItemID         string     `json:"item_id"`
	DisplayName    string     `json:"display_name"`
	ItemsAvailable int        `json:"items_available"`
	Price          string     `json:"price,omitempty"`
	OriginalValue  string     `json:"original_value,omitempty"`
	PickupStart    *time.Time `json:"pickup_start,omitempty"`
	PickupEnd      *time.Time `json:"pickup_end,omitempty"`
	ItemURL        string     `json:"item_url"`
}

// Send implements driven.AlertNotifier.
func (n *Notifier) Send(ctx context.Context, hook model.Webhook, event model.AlertEvent) error {
	body, err := json.Marshal(buildPayload(event))
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	backoff := retry.WithMaxRetries(maxRetries, retry.NewConstant(retryInterval))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := n.rc.R().
			SetContext(ctx).
			SetBody(body)

		if hook.Secret != "" {
			req.SetHeader(signatureHeader, sign(hook.Secret, body))
		}

		resp, postErr := req.Post(hook.URL)
		if postErr != nil {
			return retry.RetryableError(fmt.Errorf("post webhook: %w", postErr))
		}

		switch {
		case resp.IsSuccess():
			return nil
		case resp.StatusCode() >= http.StatusInternalServerError,
			resp.StatusCode() == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("post webhook: status %d", resp.StatusCode()))
		default:
			return fmt.Errorf("post webhook: status %d", resp.StatusCode())
		}
	})
	if err != nil {
		return fmt.Errorf("deliver %q to %s: %w", event.Type, hook.Name, err)
	}

	slog.Debug("webhook delivered",
		"target", hook.Name,
		"event", string(event.Type),
		"item_id", event.Item.ItemID,
	)

	return nil
}

func buildPayload(event model.AlertEvent) eventPayload {
	item := itemPayload{
		ItemID:         event.Item.ItemID,
		DisplayName:    event.Item.DisplayName,
		ItemsAvailable: event.Item.ItemsAvailable,
		Price:          event.Item.Price.String(),
		OriginalValue:  event.Item.OriginalValue.String(),
		ItemURL:        event.Item.ShareURL(),
	}

	if !event.Item.Pickup.Start.IsZero() {
		start := event.Item.Pickup.Start
		item.PickupStart = &start
	}
	if !event.Item.Pickup.End.IsZero() {
		end := event.Item.Pickup.End
		item.PickupEnd = &end
	}

	return eventPayload{
		Event:      string(event.Type),
		Message:    event.Message,
		OccurredAt: event.OccurredAt,
		Item:       item,
		Signals:    signalNames(event.Signals),
	}
}

func signalNames(s model.DealSignals) []string {
	var names []string
	if s.BecameAvailable {
		names = append(names, "became_available")
	}
	if s.SoldOut {
		names = append(names, "sold_out")
	}
	if s.PickupEndingSoon {
		names = append(names, "pickup_ending_soon")
	}
	if s.PickupChanged {
		names = append(names, "pickup_changed")
	}
	return names
}

// sign computes the hex HMAC-SHA256 of body keyed with secret, in the
// "sha256=<hex>" form.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
