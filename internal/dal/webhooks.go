package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Webhook mirrors the Webhook entity in spec.md §3. Secret is the opaque
// HMAC key shared with the receiving endpoint; it is never returned to the
// client after creation (see pkg/hook).
type Webhook struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	URL       string
	Secret    string
	Events    []string
	IsEnabled bool
}

const webhookColumns = `id, org_id, url, secret, events, is_enabled`

func scanWebhook(row pgx.Row) (Webhook, error) {
	var w Webhook
	err := row.Scan(&w.ID, &w.OrgID, &w.URL, &w.Secret, &w.Events, &w.IsEnabled)
	return w, err
}

func (d *DAL) Webhooks() *webhooksDAL { return &webhooksDAL{d} }

type webhooksDAL struct{ *DAL }

func (w *webhooksDAL) List(ctx context.Context) ([]Webhook, error) {
	rows, err := w.db.Query(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE org_id = $1 ORDER BY id ASC`, w.orgID)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		out = append(out, hook)
	}
	return out, rows.Err()
}

// ListEnabledForEvent returns every enabled webhook of orgID whose event list
// contains event. It scopes by the orgID argument, not by the org the DAL
// handle is bound to.
func (w *webhooksDAL) ListEnabledForEvent(ctx context.Context, orgID uuid.UUID, event string) ([]Webhook, error) {
	rows, err := w.db.Query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE org_id = $1 AND is_enabled = true AND $2 = ANY(events)`,
		orgID, event,
	)
	if err != nil {
		return nil, fmt.Errorf("listing enabled webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		out = append(out, hook)
	}
	return out, rows.Err()
}

func (w *webhooksDAL) Get(ctx context.Context, id uuid.UUID) (Webhook, error) {
	hook, err := scanWebhook(w.db.QueryRow(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1 AND org_id = $2`, id, w.orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Webhook{}, errNotFound("webhook")
	}
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	return hook, nil
}

func (w *webhooksDAL) Create(ctx context.Context, url, secret string, events []string) (Webhook, error) {
	hook, err := scanWebhook(w.db.QueryRow(ctx,
		`INSERT INTO webhooks (org_id, url, secret, events, is_enabled) VALUES ($1, $2, $3, $4, true)
		 RETURNING `+webhookColumns,
		w.orgID, url, secret, events,
	))
	if err != nil {
		return Webhook{}, fmt.Errorf("creating webhook: %w", err)
	}
	return hook, nil
}

func (w *webhooksDAL) Update(ctx context.Context, id uuid.UUID, url string, events []string, isEnabled bool) (Webhook, error) {
	if _, err := w.Get(ctx, id); err != nil {
		return Webhook{}, err
	}
	hook, err := scanWebhook(w.db.QueryRow(ctx,
		`UPDATE webhooks SET url = $1, events = $2, is_enabled = $3 WHERE id = $4 RETURNING `+webhookColumns,
		url, events, isEnabled, id,
	))
	if err != nil {
		return Webhook{}, fmt.Errorf("updating webhook: %w", err)
	}
	return hook, nil
}

func (w *webhooksDAL) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := w.db.Exec(ctx, `DELETE FROM webhooks WHERE id = $1 AND org_id = $2`, id, w.orgID)
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("webhook")
	}
	return nil
}

// WebhookDelivery mirrors the WebhookDelivery entity in spec.md §3.
// Append-only: one row per URL-level attempt (spec.md §4.8 step 5).
type WebhookDelivery struct {
	ID         uuid.UUID
	WebhookID  uuid.UUID
	Event      string
	Payload    []byte
	StatusCode *int
	Success    bool
	DurationMS int
	CreatedAt  time.Time
}

func (d *DAL) WebhookDeliveries() *webhookDeliveriesDAL { return &webhookDeliveriesDAL{d} }

type webhookDeliveriesDAL struct{ *DAL }

func (l *webhookDeliveriesDAL) Append(ctx context.Context, webhookID uuid.UUID, event string, payload []byte, statusCode *int, success bool, duration time.Duration) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO webhook_deliveries (webhook_id, event, payload, status_code, success, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		webhookID, event, payload, statusCode, success, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("appending webhook delivery: %w", err)
	}
	return nil
}

func (l *webhookDeliveriesDAL) ListForWebhook(ctx context.Context, webhookID uuid.UUID, limit, offset int) ([]WebhookDelivery, error) {
	rows, err := l.db.Query(ctx,
		`SELECT webhook_deliveries.id, webhook_deliveries.webhook_id, webhook_deliveries.event,
		        webhook_deliveries.payload, webhook_deliveries.status_code, webhook_deliveries.success,
		        webhook_deliveries.duration_ms, webhook_deliveries.created_at
		 FROM webhook_deliveries
		 JOIN webhooks ON webhooks.id = webhook_deliveries.webhook_id
		 WHERE webhook_deliveries.webhook_id = $1 AND webhooks.org_id = $2
		 ORDER BY webhook_deliveries.created_at DESC LIMIT $3 OFFSET $4`,
		webhookID, l.orgID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing webhook deliveries: %w", err)
	}
	defer rows.Close()

	var out []WebhookDelivery
	for rows.Next() {
		var wd WebhookDelivery
		if err := rows.Scan(&wd.ID, &wd.WebhookID, &wd.Event, &wd.Payload, &wd.StatusCode, &wd.Success, &wd.DurationMS, &wd.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning webhook delivery: %w", err)
		}
		out = append(out, wd)
	}
	return out, rows.Err()
}
