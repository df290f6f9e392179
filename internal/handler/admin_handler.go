package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"repairshop/internal/model"
	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

const maxLabelUpload = 10 << 20

// StatusRequest is the body of a manual status edit.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderListResponse wraps a page of orders.
type OrderListResponse struct {
	Orders []model.Order `json:"orders"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// AdminOrderHandler serves the staff order screens.
type AdminOrderHandler struct {
	service service.FulfillmentService
	logger  zerolog.Logger
}

// NewAdminOrderHandler creates a new admin order handler.
func NewAdminOrderHandler(service service.FulfillmentService, logger zerolog.Logger) *AdminOrderHandler {
	return &AdminOrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin-order").Logger(),
	}
}

// List handles GET /api/admin/orders requests.
func (h *AdminOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter model.OrderFilter

	if raw := query.Get("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			writeDomainError(w, r, err, h.logger)
			return
		}
		filter.Status = &status
	}

	var err error
	if filter.Limit, err = intQuery(query.Get("limit")); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "limit must be a non-negative integer", nil, h.logger)
		return
	}
	if filter.Offset, err = intQuery(query.Get("offset")); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "offset must be a non-negative integer", nil, h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, OrderListResponse{Orders: orders, Limit: filter.Limit, Offset: filter.Offset})
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status requests.
func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// IssueShippingLabel handles POST /api/admin/orders/{id}/shipping-label
// requests. The body is multipart with an "attachment" file part and
// optional "trackingNumber" and "message" fields.
func (h *AdminOrderHandler) IssueShippingLabel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLabelUpload)
	if err := r.ParseMultipartForm(maxLabelUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, http.StatusUnsupportedMediaType, model.ErrCodeUnsupportedMediaType, "multipart/form-data body required", nil, h.logger)
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid multipart body", nil, h.logger)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := &model.ShippingLabelRequest{
		TrackingNumber: optionalFormValue(r, "trackingNumber"),
		Message:        optionalFormValue(r, "message"),
	}

	file, header, err := r.FormFile("attachment")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Validation in the service reports the missing attachment.
	case err != nil:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid attachment", nil, h.logger)
		return
	default:
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "attachment could not be read", nil, h.logger)
			return
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" && len(content) > 0 {
			contentType = http.DetectContentType(content)
		}
		req.Attachment = &model.LabelAttachment{
			Filename:    header.Filename,
			ContentType: contentType,
			Content:     content,
		}
	}

	order, err := h.service.IssueShippingLabel(r.Context(), orderID, req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func optionalFormValue(r *http.Request, key string) *string {
	if _, ok := r.MultipartForm.Value[key]; !ok {
		return nil
	}
	v := r.FormValue(key)
	return &v
}

func intQuery(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
