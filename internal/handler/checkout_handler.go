package handler

import (
	"net/http"

	"repairshop/internal/cart"
	"repairshop/internal/checkout"
	"repairshop/internal/model"
	"repairshop/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionRegistry hands out checkout sessions.
type SessionRegistry interface {
	Start(c cart.Cart) (*checkout.Session, error)
	Get(id uuid.UUID) (*checkout.Session, error)
}

// StartSessionRequest opens a checkout. BuyNow checks out a single item
// instead of the cart lines.
type StartSessionRequest struct {
	Items  []model.CartItem `json:"items" validate:"omitempty,dive"`
	BuyNow *model.CartItem  `json:"buyNow,omitempty"`
}

// RoutingRequest answers the repair routing questions.
type RoutingRequest struct {
	RepairType     model.RepairType      `json:"repairType" validate:"required,oneof=self by_us"`
	ShippingOption *model.ShippingOption `json:"shippingOption,omitempty" validate:"omitempty,oneof=at_shop send receive"`
}

// AddressRequest carries the contact and postal details.
type AddressRequest struct {
	Address model.Address `json:"address"`
	Email   string        `json:"email" validate:"required,email"`
	UserID  *string       `json:"userId,omitempty"`
}

// BackRequest names the step to return to.
type BackRequest struct {
	Step checkout.Step `json:"step" validate:"required"`
}

// SessionConfirmResponse is returned after a confirmation attempt.
type SessionConfirmResponse struct {
	Session checkout.View          `json:"session"`
	Result  *payment.ConfirmResult `json:"result"`
}

// CheckoutHandler drives server-side checkout sessions.
type CheckoutHandler struct {
	sessions SessionRegistry
	logger   zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(sessions SessionRegistry, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		logger:   logger.With().Str("handler", "checkout").Logger(),
	}
}

// Start handles POST /api/checkout/sessions requests.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	persistent, err := cart.New(req.Items...)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	holder := cart.NewHolder(persistent)
	if req.BuyNow != nil {
		if err := validateStruct(req.BuyNow); err != nil {
			writeDomainError(w, r, err, h.logger)
			return
		}
		if err := holder.BuyNow(*req.BuyNow); err != nil {
			writeDomainError(w, r, err, h.logger)
			return
		}
	}

	session, err := h.sessions.Start(holder.Active())
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	h.logger.Info().Str("session_id", session.ID().String()).Bool("buy_now", req.BuyNow != nil).Msg("checkout started")
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

// Get handles GET /api/checkout/sessions/{id} requests.
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// SetRouting handles PUT /api/checkout/sessions/{id}/routing requests.
func (h *CheckoutHandler) SetRouting(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req RoutingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	if req.RepairType == model.RepairTypeSelf && req.ShippingOption != nil {
		writeDomainError(w, r, model.ErrShippingOptionNotApplicable, h.logger)
		return
	}

	if err := session.SelectRepairType(req.RepairType); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	if req.ShippingOption != nil {
		if err := session.SelectShippingOption(*req.ShippingOption); err != nil {
			writeDomainError(w, r, err, h.logger)
			return
		}
	}

	writeJSON(w, http.StatusOK, session.Snapshot())
}

// SetAddress handles PUT /api/checkout/sessions/{id}/address requests.
func (h *CheckoutHandler) SetAddress(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	if err := session.SetAddress(req.Address, req.Email, req.UserID); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, session.Snapshot())
}

// Submit handles POST /api/checkout/sessions/{id}/submit requests.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := session.Submit(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Confirm handles POST /api/checkout/sessions/{id}/confirm requests.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req payment.ConfirmDetails
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	view, result, err := session.Confirm(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, SessionConfirmResponse{Session: view, Result: result})
}

// Back handles POST /api/checkout/sessions/{id}/back requests.
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req BackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	view, err := session.Back(req.Step)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return nil, false
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return nil, false
	}
	return session, true
}
