package payment

import (
	"context"

	"repairshop/internal/model"

	"github.com/google/uuid"
)

// IntentParams describes the charge a payment intent authorises.
type IntentParams struct {
	OrderID     uuid.UUID
	AmountMinor int64
	Currency    string
	Email       string
	UserID      *string
	Routing     model.Routing
}

// Intent is the gateway's answer to an intent request.
type Intent struct {
	ID           string
	ClientSecret string
}

// ConfirmDetails carries the payment method the customer chose.
type ConfirmDetails struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	ReturnURL     string `json:"returnUrl,omitempty" validate:"omitempty,url"`
}

// ConfirmResult is what the gateway reported for a confirmation call.
type ConfirmResult struct {
	Outcome        model.PaymentOutcome `json:"outcome"`
	IntentID       string               `json:"intentId"`
	NextActionURL  string               `json:"nextActionUrl,omitempty"`
	FailureMessage string               `json:"failureMessage,omitempty"`
}

// Settlement is the gateway's authoritative report for an order.
type Settlement struct {
	EventID     string
	IntentID    string
	OrderID     uuid.UUID
	Outcome     model.PaymentOutcome
	AmountMinor int64
	Currency    string
}

// Gateway is the payment provider contract used by checkout.
type Gateway interface {
	// CreateIntent authorises a charge for the given amount and metadata.
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)

	// Confirm attempts the charge identified by clientSecret.
	Confirm(ctx context.Context, clientSecret string, details ConfirmDetails) (*ConfirmResult, error)

	// Cancel voids the intent so no later attempt can charge against it.
	Cancel(ctx context.Context, intentID string) error
}

// SettlementParser verifies and decodes asynchronous gateway notifications.
type SettlementParser interface {
	// ParseSettlement returns nil, nil for events that carry no settlement.
	ParseSettlement(payload []byte, signature string) (*Settlement, error)
}
