package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// WebhookEventRepository is the durable half of the idempotency guard
// described in SPEC_FULL.md §4.10: an append-only audit table keyed by the
// gateway's event id.
type WebhookEventRepository struct {
	db *sqlx.DB
}

func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// AlreadyProcessed reports whether eventID has a recorded, processed row.
func (r *WebhookEventRepository) AlreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	var processed bool
	query := `SELECT processed_at IS NOT NULL FROM payment_webhook_events WHERE event_id = $1`
	err := r.db.GetContext(ctx, &processed, query, eventID)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		return false, fmt.Errorf("check webhook event %s: %w", eventID, err)
	}
	return processed, nil
}

// MarkProcessed records eventID as handled inside the same transaction as
// the status transition it drove, with ON CONFLICT (event_id) DO UPDATE
// (refreshing processed_at) so a race between two deliveries never errors
// the second one.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string) error {
	query := `
		INSERT INTO payment_webhook_events (event_id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO UPDATE SET processed_at = EXCLUDED.processed_at
	`
	_, err := tx.Exec(ctx, query, eventID, eventType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark webhook event %s processed: %w", eventID, err)
	}
	return nil
}
