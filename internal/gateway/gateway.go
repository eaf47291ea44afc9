// Package gateway implements the outbound Payment Gateway Port (spec.md
// §2.3): the seam between the booking engine and the external payment
// provider. Everything here is a concrete-instance adapter, not a static
// helper, per spec.md §9.
package gateway

import (
	"context"

	"tutoring-platform/internal/models"
)

// PaymentGateway is the port the booking engine depends on. Implementations
// are external collaborators; the engine only ever sees this interface.
type PaymentGateway interface {
	// CreateOrRefreshCheckoutSession creates a checkout session for a
	// LESSON booking. The StripeGateway adapter creates a new session on
	// every call; an existing session for the booking is not looked up or
	// reused.
	CreateOrRefreshCheckoutSession(ctx context.Context, booking *models.Booking) (*models.CheckoutSession, error)

	// ExpireCheckoutSession expires a previously created session, called
	// before committing a Cancel from AWAITING_PAYMENT.
	ExpireCheckoutSession(ctx context.Context, sessionID string) error

	// CreateRefund issues a refund against a payment intent, called before
	// committing a RequestRefund.
	CreateRefund(ctx context.Context, paymentIntentID string, bookingID string) (*models.RefundResult, error)

	// VerifyAndParseWebhook authenticates rawBody against signature and
	// extracts the typed event the Webhook Reducer consumes.
	VerifyAndParseWebhook(rawBody []byte, signature string) (*models.WebhookEvent, error)
}
