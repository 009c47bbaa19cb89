package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WebhookStore = (*WebhookRepo)(nil)

// WebhookRepo is the SQLite implementation of the WebhookStore port interface.
type WebhookRepo struct {
	db *DB
}

// NewWebhookRepo creates a new WebhookRepo backed by the given DB.
func NewWebhookRepo(db *DB) *WebhookRepo {
	return &WebhookRepo{db: db}
}

// Add inserts a new webhook target. Returns ErrWebhookAlreadyExists if the
// name is already taken.
func (r *WebhookRepo) Add(ctx context.Context, hook model.Webhook) (model.Webhook, error) {
	const query = `INSERT INTO webhooks (name, url, secret, enabled, added_at) VALUES (?, ?, ?, ?, ?)`

	addedAt := hook.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	enabled := 0
	if hook.Enabled {
		enabled = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query, hook.Name, hook.URL, hook.Secret, enabled, addedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Webhook{}, fmt.Errorf("add webhook %q: %w", hook.Name, driven.ErrWebhookAlreadyExists)
		}
		return model.Webhook{}, fmt.Errorf("add webhook %q: %w", hook.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Webhook{}, fmt.Errorf("webhook insert id: %w", err)
	}

	hook.ID = id
	hook.AddedAt = addedAt
	return hook, nil
}

// Remove deletes a webhook target by name. Returns ErrWebhookNotFound if the
// name does not exist.
func (r *WebhookRepo) Remove(ctx context.Context, name string) error {
	const query = `DELETE FROM webhooks WHERE name = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("remove webhook %q: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove webhook %q: %w", name, driven.ErrWebhookNotFound)
	}

	return nil
}

// SetEnabled flips the enabled switch of a webhook target.
// Returns ErrWebhookNotFound if the name does not exist.
func (r *WebhookRepo) SetEnabled(ctx context.Context, name string, enabled bool) error {
	const query = `UPDATE webhooks SET enabled = ? WHERE name = ?`

	val := 0
	if enabled {
		val = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query, val, name)
	if err != nil {
		return fmt.Errorf("set webhook %q enabled: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set webhook %q enabled: %w", name, driven.ErrWebhookNotFound)
	}

	return nil
}

// ListAll returns all webhook targets ordered alphabetically by name.
func (r *WebhookRepo) ListAll(ctx context.Context) ([]model.Webhook, error) {
	const query = `SELECT id, name, url, secret, enabled, added_at FROM webhooks ORDER BY name`

	return r.queryWebhooks(ctx, query)
}

// ListEnabled returns only enabled targets, ordered alphabetically by name.
func (r *WebhookRepo) ListEnabled(ctx context.Context) ([]model.Webhook, error) {
	const query = `SELECT id, name, url, secret, enabled, added_at FROM webhooks WHERE enabled = 1 ORDER BY name`

	return r.queryWebhooks(ctx, query)
}

func (r *WebhookRepo) queryWebhooks(ctx context.Context, query string, args ...any) ([]model.Webhook, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []model.Webhook
	for rows.Next() {
		var hook model.Webhook
		var enabled int
		var addedAt string
		if err := rows.Scan(&hook.ID, &hook.Name, &hook.URL, &hook.Secret, &enabled, &addedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}

		hook.Enabled = enabled != 0

		hook.AddedAt, err = parseTime(addedAt)
		if err != nil {
			return nil, fmt.Errorf("parse added_at: %w", err)
		}

		hooks = append(hooks, hook)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}

	return hooks, nil
}
