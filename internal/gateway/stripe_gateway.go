package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"tutoring-platform/internal/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
)

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// StripeGateway adapts stripe-go/v76 to the PaymentGateway port, grounded
// on ksingh-scogo-crosslogic-ai-iaas's billing engine/webhook handler.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeGateway configures the package-level stripe.Key the same way
// the billing engine does, and returns the adapter.
func NewStripeGateway(secretKey, webhookSecret, frontendURL string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		successURL:    frontendURL + "/bookings/success?booking_id={CHECKOUT_SESSION_ID}",
		cancelURL:     frontendURL + "/bookings/cancel",
	}
}

// CreateOrRefreshCheckoutSession creates a new checkout session for the
// booking's price on every call. No existing session is looked up or
// reused, here or in Confirm, which stores the returned session on the
// Payment row via UpsertCheckoutSession.
func (g *StripeGateway) CreateOrRefreshCheckoutSession(ctx context.Context, booking *models.Booking) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(lessonPriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(booking.Title),
					},
				},
			},
		},
		Metadata: map[string]string{
			"bookingId": booking.ID.String(),
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return &models.CheckoutSession{SessionID: sess.ID, SessionURL: sess.URL}, nil
}

// ExpireCheckoutSession expires a previously created session.
func (g *StripeGateway) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	_, err := session.Expire(sessionID, &stripe.CheckoutSessionExpireParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("stripe: expire checkout session %s: %w", sessionID, err)
	}
	return nil
}

// CreateRefund issues a full refund against a payment intent, tagging it
// with the booking id for the eventual webhook.
func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string, bookingID string) (*models.RefundResult, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentIntentID),
		Metadata: map[string]string{
			"bookingId": bookingID,
		},
	}
	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create refund for intent %s: %w", paymentIntentID, err)
	}
	return &models.RefundResult{RefundID: r.ID}, nil
}

// lessonPriceCents is a placeholder unit price; pricing/discount logic is
// explicitly out of scope (spec.md §1 Non-goals) and owned by the catalog
// service this gateway's caller passes a resolved price from in a full
// deployment.
const lessonPriceCents = 5000

// VerifyAndParseWebhook verifies the Stripe signature and extracts the
// fields the Webhook Reducer needs (spec.md §4.9).
func (g *StripeGateway) VerifyAndParseWebhook(rawBody []byte, signature string) (*models.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(rawBody, signature, g.webhookSecret)
	if err != nil {
		return nil, models.ErrInvalidSignature
	}

	out := &models.WebhookEvent{ID: event.ID}

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: unmarshal payment_intent: %w", err)
		}
		out.Type = models.EventPaymentSucceeded
		out.PaymentIntentID = pi.ID
		if pi.LatestCharge != nil {
			out.ChargeID = pi.LatestCharge.ID
		}
		if err := setBookingID(out, pi.Metadata); err != nil {
			return nil, err
		}

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: unmarshal payment_intent: %w", err)
		}
		out.Type = models.EventPaymentFailed
		out.PaymentIntentID = pi.ID
		if pi.LastPaymentError != nil {
			out.FailureReason = pi.LastPaymentError.Msg
		}
		if err := setBookingID(out, pi.Metadata); err != nil {
			return nil, err
		}

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("stripe: unmarshal charge: %w", err)
		}
		out.Type = models.EventChargeRefunded
		out.ChargeID = ch.ID
		if err := setBookingID(out, ch.Metadata); err != nil {
			return nil, err
		}

	case "refund.created":
		var rf stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &rf); err != nil {
			return nil, fmt.Errorf("stripe: unmarshal refund: %w", err)
		}
		out.Type = models.EventRefundCreated
		if err := setBookingID(out, rf.Metadata); err != nil {
			return nil, err
		}

	case "refund.failed":
		var rf stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &rf); err != nil {
			return nil, fmt.Errorf("stripe: unmarshal refund: %w", err)
		}
		out.Type = models.EventRefundFailed
		out.FailureReason = string(rf.FailureReason)
		if err := setBookingID(out, rf.Metadata); err != nil {
			return nil, err
		}

	default:
		// Unknown event types are ignored with success (spec.md §4.9).
		out.Type = ""
	}

	return out, nil
}

func setBookingID(out *models.WebhookEvent, metadata map[string]string) error {
	raw, ok := metadata["bookingId"]
	if !ok || raw == "" {
		return models.ErrInvalidMetadata
	}
	id, err := parseUUID(raw)
	if err != nil {
		return models.ErrInvalidMetadata
	}
	out.BookingID = id
	return nil
}
