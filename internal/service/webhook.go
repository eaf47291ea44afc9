package service

import (
	"context"
	"fmt"

	"tutoring-platform/internal/database"
	"tutoring-platform/internal/gateway"
	"tutoring-platform/internal/idempotency"
	"tutoring-platform/internal/models"
	"tutoring-platform/internal/repository"
	"tutoring-platform/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// WebhookReducer maps payment-gateway events to booking status
// transitions, idempotently (spec.md §4.9, SPEC_FULL.md §4.10).
type WebhookReducer struct {
	db       *database.DB
	bookings *repository.BookingRepository
	payments *repository.PaymentRepository
	events   *repository.WebhookEventRepository
	gateway  gateway.PaymentGateway
	lock     idempotency.Locker
	sm       stateMachine
}

func NewWebhookReducer(
	db *database.DB,
	bookings *repository.BookingRepository,
	payments *repository.PaymentRepository,
	events *repository.WebhookEventRepository,
	gw gateway.PaymentGateway,
	lock idempotency.Locker,
) *WebhookReducer {
	return &WebhookReducer{
		db:       db,
		bookings: bookings,
		payments: payments,
		events:   events,
		gateway:  gw,
		lock:     lock,
	}
}

// Process verifies and applies one incoming webhook delivery. It is safe
// to call concurrently with a retried delivery of the same event: the
// in-memory/Redis lock rejects a second in-flight attempt, and the durable
// audit table makes a delivery that arrives after the first has already
// committed a no-op.
func (r *WebhookReducer) Process(ctx context.Context, rawBody []byte, signature string) error {
	event, err := r.gateway.VerifyAndParseWebhook(rawBody, signature)
	if err != nil {
		return err
	}
	if event.Type == "" {
		// Unknown event types are ignored with success (spec.md §4.9).
		return nil
	}

	acquired, err := r.lock.Acquire(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("acquire webhook lock for event %s: %w", event.ID, err)
	}
	if !acquired {
		return nil
	}
	defer r.lock.Release(ctx, event.ID)

	already, err := r.events.AlreadyProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event %s: %w", event.ID, err)
	}
	if already {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return fmt.Errorf("begin webhook tx: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := r.bookings.GetByIDForUpdate(ctx, tx, event.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("load booking for webhook: %w", err)
	}

	next, ok := r.sm.webhookTarget(event.Type, booking.Status)
	if !ok {
		// Pre-status mismatch: late or out-of-order delivery. Acknowledge
		// without mutating (P6 / SPEC_FULL.md §5).
		if err := r.events.MarkProcessed(ctx, tx, event.ID, string(event.Type)); err != nil {
			return fmt.Errorf("mark stale webhook event processed: %w", err)
		}
		return tx.Commit(ctx)
	}

	if next != booking.Status {
		if err := r.bookings.UpdateStatus(ctx, tx, booking.ID, next); err != nil {
			return fmt.Errorf("apply webhook status transition: %w", err)
		}
	}

	if err := r.applySideEffects(ctx, tx, booking.ID, event); err != nil {
		return err
	}

	if err := r.events.MarkProcessed(ctx, tx, event.ID, string(event.Type)); err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit webhook: %w", err)
	}

	log.Info().
		Str("event_type", string(event.Type)).
		Str("booking", utils.MaskUserID(booking.ID)).
		Str("status", string(next)).
		Msg("webhook applied")

	return nil
}

// applySideEffects records the gateway ids/failure reasons the table in
// spec.md §4.9 lists per event type.
func (r *WebhookReducer) applySideEffects(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, event *models.WebhookEvent) error {
	switch event.Type {
	case models.EventPaymentSucceeded:
		return r.payments.RecordPaymentIntent(ctx, tx, bookingID, event.PaymentIntentID, event.ChargeID, nil)
	case models.EventPaymentFailed:
		if err := r.payments.RecordPaymentIntent(ctx, tx, bookingID, event.PaymentIntentID, "", nil); err != nil {
			return err
		}
		if event.FailureReason != "" {
			return r.payments.RecordFailureReason(ctx, tx, bookingID, event.FailureReason)
		}
		return nil
	case models.EventChargeRefunded:
		if err := r.payments.RecordPaymentIntent(ctx, tx, bookingID, "", event.ChargeID, nil); err != nil {
			return err
		}
		if event.FailureReason != "" {
			return r.payments.RecordFailureReason(ctx, tx, bookingID, event.FailureReason)
		}
		return nil
	case models.EventRefundFailed:
		if event.FailureReason != "" {
			return r.payments.RecordFailureReason(ctx, tx, bookingID, event.FailureReason)
		}
		return nil
	default:
		return nil
	}
}
