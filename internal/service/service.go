package service

import (
	"context"

	"repairshop/internal/lock"
	"repairshop/internal/metrics"
	"repairshop/internal/model"
	"repairshop/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutService turns a checkout into an order and a payment intent.
type CheckoutService interface {
	// RequestPaymentIntent re-prices the cart, creates the order in status
	// created and obtains a client secret. No order exists if it fails.
	RequestPaymentIntent(ctx context.Context, req *model.IntentRequest) (*model.IntentResponse, error)

	// ConfirmPayment confirms the order's intent with the gateway and
	// reconciles the reported outcome.
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, clientSecret string, details payment.ConfirmDetails) (*payment.ConfirmResult, error)

	// ReconcileConfirmation records an outcome observed by the client. Only a
	// definitive failure changes the order; success waits for settlement.
	ReconcileConfirmation(ctx context.Context, orderID uuid.UUID, outcome model.PaymentOutcome) (*model.Order, error)
}

// SettlementService applies authoritative gateway settlement events.
type SettlementService interface {
	ApplySettlement(ctx context.Context, settlement *payment.Settlement) error
}

// FulfillmentService is the staff entry point for order mutations.
type FulfillmentService interface {
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.Status) (*model.Order, error)
	IssueShippingLabel(ctx context.Context, id uuid.UUID, req *model.ShippingLabelRequest) (*model.Order, error)
}

// OrderService exposes read access to orders for the storefront.
type OrderService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// OrderLocker grants exclusive per-order leases.
type OrderLocker interface {
	Acquire(ctx context.Context, name string) (*lock.Lease, error)
}

// EventDeduper remembers processed gateway events.
type EventDeduper interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// IntentCanceller voids the payment intent of an order that has failed.
type IntentCanceller interface {
	Cancel(ctx context.Context, intentID string) error
}

// cancelIntent voids the intent behind an order that just moved to failed, so
// a retried confirmation cannot charge the customer afterwards. Errors are
// logged only; a charge that still lands is caught as a late success.
func cancelIntent(ctx context.Context, c IntentCanceller, order *model.Order, m *metrics.OrderMetrics, logger zerolog.Logger) {
	if c == nil || order == nil || order.PaymentIntentID == nil {
		return
	}
	intentID := *order.PaymentIntentID
	if err := c.Cancel(ctx, intentID); err != nil {
		m.IncIntent("cancel_failed")
		logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Str("intent_id", intentID).
			Msg("failed to cancel payment intent of failed order")
		return
	}
	m.IncIntent("cancelled")
}

func orderLockName(id uuid.UUID) string {
	return "order:" + id.String()
}
