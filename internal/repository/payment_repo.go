package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tutoring-platform/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// PaymentRepository is the 1-to-1 Payment-per-Booking store described in
// spec.md §3/I5.
type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetByBookingID loads the payment row owned by a booking, locking it for
// update when called within a transaction doing a status transition.
func (r *PaymentRepository) GetByBookingID(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + PaymentSelectFields + ` FROM payments WHERE booking_id = $1 FOR UPDATE`
	row := tx.QueryRow(ctx, query, bookingID)
	return scanPayment(row)
}

// GetByBookingIDRead loads a booking's payment without locking, for read
// paths outside a mutating command (GetOne). Returns (nil, nil) when the
// booking has no attached payment yet, which is the normal state for a
// FREE_MEETING.
func (r *PaymentRepository) GetByBookingIDRead(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	var metadataRaw []byte
	query := `SELECT id, booking_id, session_id, session_url, payment_intent_id, charge_id, metadata, created_at, updated_at FROM payments WHERE booking_id = $1`
	row := r.db.QueryRowxContext(ctx, query, bookingID)
	err := row.Scan(
		&p.ID, &p.BookingID, &p.SessionID, &p.SessionURL, &p.PaymentIntentID,
		&p.ChargeID, &metadataRaw, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment for booking %s: %w", bookingID, err)
	}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal payment metadata: %w", err)
		}
	}
	return &p, nil
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var metadataRaw []byte
	err := row.Scan(
		&p.ID, &p.BookingID, &p.SessionID, &p.SessionURL, &p.PaymentIntentID,
		&p.ChargeID, &metadataRaw, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal payment metadata: %w", err)
		}
	}
	return &p, nil
}

// UpsertCheckoutSession creates or refreshes the payment row attached to a
// booking with a new checkout session, the atomic half of §4.5's
// "create session and upsert Payment in the same transaction".
func (r *PaymentRepository) UpsertCheckoutSession(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, session *models.CheckoutSession) (*models.Payment, error) {
	query := `
		INSERT INTO payments (id, booking_id, session_id, session_url, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, now(), now())
		ON CONFLICT (booking_id) DO UPDATE
			SET session_id = EXCLUDED.session_id,
			    session_url = EXCLUDED.session_url,
			    updated_at = now()
		RETURNING ` + PaymentSelectFields
	row := tx.QueryRow(ctx, query, uuid.New(), bookingID, session.SessionID, session.SessionURL)
	return scanPayment(row)
}

// RecordPaymentIntent stores the ids the gateway attaches once a checkout
// session's payment succeeds or fails (spec.md §4.9 table).
func (r *PaymentRepository) RecordPaymentIntent(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, paymentIntentID, chargeID string, metadata map[string]string) error {
	if metadata == nil {
		// json.Marshal(nil) yields the JSON literal `null`, and
		// `'{}'::jsonb || 'null'::jsonb` coerces the column into an array
		// instead of leaving it an object. Marshal an empty object so the
		// concat is a no-op.
		metadata = map[string]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal payment metadata: %w", err)
	}
	query := `
		UPDATE payments
		SET payment_intent_id = COALESCE(NULLIF($1, ''), payment_intent_id),
		    charge_id = COALESCE(NULLIF($2, ''), charge_id),
		    metadata = metadata || $3::jsonb, updated_at = now()
		WHERE booking_id = $4
	`
	_, err = tx.Exec(ctx, query, paymentIntentID, chargeID, raw, bookingID)
	if err != nil {
		return fmt.Errorf("record payment intent for booking %s: %w", bookingID, err)
	}
	return nil
}

// RecordFailureReason appends a failure-reason metadata entry (used by
// refund.failed / payment_intent.payment_failed).
func (r *PaymentRepository) RecordFailureReason(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, reason string) error {
	raw, err := json.Marshal(map[string]string{"failureReason": reason, "recordedAt": time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE payments SET metadata = metadata || $1::jsonb, updated_at = now() WHERE booking_id = $2`, raw, bookingID)
	return err
}
