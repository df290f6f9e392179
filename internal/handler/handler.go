package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"repairshop/internal/middleware"
	"repairshop/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// statusByCode maps domain error codes to HTTP statuses.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:          http.StatusBadRequest,
	model.ErrCodeMissingField:         http.StatusBadRequest,
	model.ErrCodeValidation:           http.StatusBadRequest,
	model.ErrCodeEmptyCart:            http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:      http.StatusBadRequest,
	model.ErrCodeInvalidPrice:         http.StatusBadRequest,
	model.ErrCodeItemNotFound:         http.StatusBadRequest,
	model.ErrCodeIncompleteAddress:    http.StatusBadRequest,
	model.ErrCodeRoutingRequired:      http.StatusBadRequest,
	model.ErrCodeShippingRequired:     http.StatusBadRequest,
	model.ErrCodeShippingNotAllowed:   http.StatusBadRequest,
	model.ErrCodeInvalidRouting:       http.StatusBadRequest,
	model.ErrCodeInvalidStatus:        http.StatusBadRequest,
	model.ErrCodeAttachmentRequired:   http.StatusBadRequest,
	model.ErrCodeInvalidSignature:     http.StatusBadRequest,
	model.ErrCodeUnauthorised:         http.StatusUnauthorized,
	model.ErrCodeForbidden:            http.StatusForbidden,
	model.ErrCodeOrderNotFound:        http.StatusNotFound,
	model.ErrCodeSessionNotFound:      http.StatusNotFound,
	model.ErrCodeMethodNotAllowed:     http.StatusMethodNotAllowed,
	model.ErrCodePriceMismatch:        http.StatusConflict,
	model.ErrCodeInvalidTransition:    http.StatusConflict,
	model.ErrCodeAlreadyShipped:       http.StatusConflict,
	model.ErrCodeLabelInProgress:      http.StatusConflict,
	model.ErrCodeOrderBusy:            http.StatusConflict,
	model.ErrCodeRequestInFlight:      http.StatusConflict,
	model.ErrCodeSessionTerminal:      http.StatusConflict,
	model.ErrCodeStepNotReachable:     http.StatusConflict,
	model.ErrCodeCheckoutLocked:       http.StatusConflict,
	model.ErrCodeAmountMismatch:       http.StatusConflict,
	model.ErrCodeUnsupportedMediaType: http.StatusUnsupportedMediaType,
	model.ErrCodeLabelNotEligible:     http.StatusUnprocessableEntity,
	model.ErrCodeGateway:              http.StatusBadGateway,
	model.ErrCodeNotificationFailed:   http.StatusBadGateway,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and code.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Str("path", r.URL.Path).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.RequestIDFromContext(r.Context()),
		Details:       details,
	})
}

// writeDomainError maps err onto a status code. Anything that is not a
// domain error is reported as an internal error without leaking details.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeError(w, r, status, domainErr.Code, domainErr.Message, nil, logger)
		return
	}
	var validationErr *requestError
	if errors.As(err, &validationErr) {
		writeError(w, r, http.StatusBadRequest, validationErr.code, validationErr.message, validationErr.details, logger)
		return
	}

	logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", nil, logger)
}

// requestError reports malformed or invalid request input.
type requestError struct {
	code    string
	message string
	details map[string]string
}

func (e *requestError) Error() string {
	return e.message
}

// decodeJSON decodes the body into dest and runs struct validation on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return &requestError{code: model.ErrCodeInvalidJSON, message: "invalid request body", details: map[string]string{"body": err.Error()}}
	}
	return validateStruct(dest)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			details := make(map[string]string, len(errs))
			for _, fieldErr := range errs {
				details[fieldErr.Namespace()] = validationMessage(fieldErr)
			}
			return &requestError{code: model.ErrCodeValidation, message: "validation failed", details: details}
		}
		return &requestError{code: model.ErrCodeValidation, message: err.Error()}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "url":
		return "must be a valid URL"
	}
	return "is invalid"
}

// uuidParam reads a UUID path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, &requestError{code: model.ErrCodeMissingField, message: name + " is required"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &requestError{code: model.ErrCodeValidation, message: "invalid " + name + " format"}
	}
	return id, nil
}
