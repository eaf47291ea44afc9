package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment is owned 1-to-1 by a Booking (spec.md §3, §9 "parent-owned":
// Booking owns Payment by id, Payment refers back by BookingID — no
// in-memory back-pointer from Booking to Payment beyond the id).
type Payment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	BookingID       uuid.UUID         `db:"booking_id" json:"bookingId"`
	SessionID       *string           `db:"session_id" json:"sessionId,omitempty"`
	SessionURL      *string           `db:"session_url" json:"sessionUrl,omitempty"`
	PaymentIntentID *string           `db:"payment_intent_id" json:"paymentIntentId,omitempty"`
	ChargeID        *string           `db:"charge_id" json:"chargeId,omitempty"`
	Metadata        map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`
}

// CheckoutSession is what the Payment Gateway Port returns from
// createOrRefreshCheckoutSession (spec.md §2.3).
type CheckoutSession struct {
	SessionID  string
	SessionURL string
}

// RefundResult is what createRefund returns.
type RefundResult struct {
	RefundID string
}

// WebhookEventType enumerates the events the reducer understands (spec.md
// §4.9).
type WebhookEventType string

const (
	EventPaymentSucceeded WebhookEventType = "payment_intent.succeeded"
	EventPaymentFailed    WebhookEventType = "payment_intent.payment_failed"
	EventChargeRefunded   WebhookEventType = "charge.refunded"
	EventRefundCreated    WebhookEventType = "refund.created"
	EventRefundFailed     WebhookEventType = "refund.failed"
)

// WebhookEvent is the typed, verified result of verifyAndParseWebhook.
type WebhookEvent struct {
	ID              string
	Type            WebhookEventType
	BookingID       uuid.UUID
	PaymentIntentID string
	ChargeID        string
	FailureReason   string
}
