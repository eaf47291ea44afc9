package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"tutoring-platform/internal/models"
	"tutoring-platform/internal/service"
	"tutoring-platform/pkg/response"
)

// PaymentHandler terminates the gateway's webhook delivery and hands the
// raw body to the Webhook Reducer (spec.md §4.9).
type PaymentHandler struct {
	webhooks *service.WebhookReducer
}

func NewPaymentHandler(webhooks *service.WebhookReducer) *PaymentHandler {
	return &PaymentHandler{webhooks: webhooks}
}

// Webhook handles POST /payments/webhook.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.webhooks.Process(r.Context(), body, signature); err != nil {
		if err == models.ErrInvalidSignature {
			response.Error(w, http.StatusUnauthorized, response.ErrCodeInvalidSignature, "Webhook signature verification failed")
			return
		}
		if domainErr, ok := models.IsDomainError(err); ok {
			log.Warn().Str("code", domainErr.Code).Err(err).Msg("webhook rejected")
			response.BadRequest(w, domainErr.Code, domainErr.Message)
			return
		}
		log.Error().Err(err).Msg("failed to process payment webhook")
		response.InternalError(w, "Failed to process webhook")
		return
	}

	w.WriteHeader(http.StatusOK)
}
