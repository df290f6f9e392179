package handler

import (
	"errors"
	"io"
	"net/http"

	"repairshop/internal/model"
	"repairshop/internal/payment"
	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives gateway settlement notifications.
type WebhookHandler struct {
	parser      payment.SettlementParser
	settlements service.SettlementService
	logger      zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(parser payment.SettlementParser, settlements service.SettlementService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		parser:      parser,
		settlements: settlements,
		logger:      logger.With().Str("handler", "stripe-webhook").Logger(),
	}
}

// Stripe handles POST /api/webhooks/stripe requests. A non-2xx answer makes
// the gateway redeliver, so only retryable failures are reported as errors.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "request body could not be read", nil, h.logger)
		return
	}

	settlement, err := h.parser.ParseSettlement(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, model.ErrInvalidSignature) {
			writeDomainError(w, r, model.ErrInvalidSignature, h.logger)
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "unprocessable event", nil, h.logger)
		return
	}
	if settlement == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.settlements.ApplySettlement(r.Context(), settlement); err != nil {
		if errors.Is(err, model.ErrAmountMismatch) {
			// Redelivery cannot fix this; staff reconcile it from the logs.
			h.logger.Error().
				Str("event_id", settlement.EventID).
				Str("order_id", settlement.OrderID.String()).
				Msg("settlement acknowledged without applying")
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
