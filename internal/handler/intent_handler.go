package handler

import (
	"net/http"

	"repairshop/internal/model"
	"repairshop/internal/payment"
	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

// ConfirmRequest is the body of a payment confirmation.
type ConfirmRequest struct {
	ClientSecret  string `json:"clientSecret" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	ReturnURL     string `json:"returnUrl,omitempty" validate:"omitempty,url"`
}

// ConfirmationRequest reports what the client saw after confirming.
type ConfirmationRequest struct {
	Outcome model.PaymentOutcome `json:"outcome" validate:"required,oneof=succeeded failed requires_action"`
}

// IntentHandler exposes intent creation and confirmation for clients that
// drive the checkout steps themselves.
type IntentHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewIntentHandler creates a new intent handler.
func NewIntentHandler(service service.CheckoutService, logger zerolog.Logger) *IntentHandler {
	return &IntentHandler{
		service: service,
		logger:  logger.With().Str("handler", "intent").Logger(),
	}
}

// Create handles POST /api/checkout/intents requests.
func (h *IntentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.IntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.RequestPaymentIntent(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Confirm handles POST /api/checkout/orders/{id}/confirm requests.
func (h *IntentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	var req ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	result, err := h.service.ConfirmPayment(r.Context(), orderID, req.ClientSecret, payment.ConfirmDetails{
		PaymentMethod: req.PaymentMethod,
		ReturnURL:     req.ReturnURL,
	})
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Confirmation handles POST /api/checkout/orders/{id}/confirmation requests.
// The reported outcome is a navigation hint; the response carries the
// persisted order.
func (h *IntentHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	var req ConfirmationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	order, err := h.service.ReconcileConfirmation(r.Context(), orderID, req.Outcome)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
