package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"
)

// Metadata keys written on every payment intent.
const (
	MetadataOrderID        = "order_id"
	MetadataRepairType     = "repair_type"
	MetadataShippingOption = "shipping_option"
	MetadataEmail          = "email"
	MetadataUserID         = "user_id"
)

// intentAPI exposes the subset of Stripe payment intent operations the gateway needs.
type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type stripeIntentAPI struct{}

func (stripeIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (stripeIntentAPI) Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Confirm(id, params)
}

func (stripeIntentAPI) Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Cancel(id, params)
}

type signingSecretSource interface {
	SigningSecret() string
}

// StripeGateway implements Gateway and SettlementParser against Stripe.
type StripeGateway struct {
	intents intentAPI
	secrets signingSecretSource
	logger  zerolog.Logger
}

// NewStripeGateway builds a gateway backed by the global Stripe key set in NewClient.
func NewStripeGateway(client *Client, logger zerolog.Logger) *StripeGateway {
	return newStripeGateway(stripeIntentAPI{}, client, logger)
}

func newStripeGateway(api intentAPI, secrets signingSecretSource, logger zerolog.Logger) *StripeGateway {
	return &StripeGateway{
		intents: api,
		secrets: secrets,
		logger:  logger.With().Str("component", "stripe-gateway").Logger(),
	}
}

// CreateIntent creates a Stripe payment intent keyed on the order id, so a
// retried request for the same order never produces a second intent.
func (g *StripeGateway) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	if p.AmountMinor <= 0 {
		return nil, fmt.Errorf("intent amount must be positive, got %d", p.AmountMinor)
	}

	repairType, shipping := p.Routing.Metadata()
	metadata := map[string]string{
		MetadataOrderID: p.OrderID.String(),
		MetadataEmail:   p.Email,
	}
	if repairType != "" {
		metadata[MetadataRepairType] = repairType
	}
	if shipping != "" {
		metadata[MetadataShippingOption] = shipping
	}
	if p.UserID != nil {
		metadata[MetadataUserID] = *p.UserID
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}
	if p.Email != "" {
		params.ReceiptEmail = stripe.String(p.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey("order-intent-" + p.OrderID.String())

	pi, err := g.intents.New(params)
	if err != nil {
		g.logger.Error().Err(err).Str("order_id", p.OrderID.String()).Msg("failed to create payment intent")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if pi == nil || pi.ClientSecret == "" {
		return nil, errors.New("create payment intent: empty client secret")
	}

	g.logger.Info().
		Str("order_id", p.OrderID.String()).
		Str("intent_id", pi.ID).
		Int64("amount", p.AmountMinor).
		Msg("payment intent created")

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// Confirm confirms the intent that the client secret belongs to.
func (g *StripeGateway) Confirm(ctx context.Context, clientSecret string, details ConfirmDetails) (*ConfirmResult, error) {
	intentID, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(details.PaymentMethod),
	}
	if details.ReturnURL != "" {
		params.ReturnURL = stripe.String(details.ReturnURL)
	}
	params.Context = ctx

	pi, err := g.intents.Confirm(intentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			g.logger.Info().Str("intent_id", intentID).Str("decline_code", string(stripeErr.DeclineCode)).Msg("card declined")
			return &ConfirmResult{
				Outcome:        model.OutcomeFailed,
				IntentID:       intentID,
				FailureMessage: stripeErr.Msg,
			}, nil
		}
		g.logger.Error().Err(err).Str("intent_id", intentID).Msg("failed to confirm payment intent")
		return nil, fmt.Errorf("confirm payment intent: %w", err)
	}

	return resultFromIntent(pi), nil
}

// Cancel voids an intent whose order has failed. Stripe refuses to cancel an
// intent that already succeeded; that case is reported as an error.
func (g *StripeGateway) Cancel(ctx context.Context, intentID string) error {
	if intentID == "" {
		return errors.New("cancel payment intent: intent id required")
	}

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	pi, err := g.intents.Cancel(intentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			g.logger.Warn().Str("intent_id", intentID).Msg("payment intent not cancellable in its current state")
		}
		return fmt.Errorf("cancel payment intent: %w", err)
	}
	if pi != nil && pi.Status != stripe.PaymentIntentStatusCanceled {
		return fmt.Errorf("cancel payment intent: status is %s", pi.Status)
	}

	g.logger.Info().Str("intent_id", intentID).Msg("payment intent cancelled")
	return nil
}

// ParseSettlement verifies a webhook payload and maps payment intent events.
func (g *StripeGateway) ParseSettlement(payload []byte, signature string) (*Settlement, error) {
	if signature == "" {
		return nil, model.ErrInvalidSignature
	}
	event, err := webhook.ConstructEvent(payload, signature, g.secrets.SigningSecret())
	if err != nil {
		g.logger.Warn().Err(err).Msg("stripe signature verification failed")
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	}
	return settlementFromEvent(&event)
}

func settlementFromEvent(event *stripe.Event) (*Settlement, error) {
	var outcome model.PaymentOutcome
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		outcome = model.OutcomeSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		outcome = model.OutcomeFailed
	default:
		return nil, nil
	}

	if event.Data == nil {
		return nil, errors.New("stripe event data required")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent event: %w", err)
	}

	orderID, err := uuid.Parse(pi.Metadata[MetadataOrderID])
	if err != nil {
		return nil, fmt.Errorf("payment intent %s has no valid %s metadata: %w", pi.ID, MetadataOrderID, err)
	}

	return &Settlement{
		EventID:     event.ID,
		IntentID:    pi.ID,
		OrderID:     orderID,
		Outcome:     outcome,
		AmountMinor: pi.Amount,
		Currency:    string(pi.Currency),
	}, nil
}

func resultFromIntent(pi *stripe.PaymentIntent) *ConfirmResult {
	result := &ConfirmResult{IntentID: pi.ID}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Outcome = model.OutcomeSucceeded
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		result.Outcome = model.OutcomeFailed
		if pi.LastPaymentError != nil {
			result.FailureMessage = pi.LastPaymentError.Msg
		}
	default:
		// processing, requires_action, requires_confirmation and requires_capture
		// all leave the customer on the payment step.
		result.Outcome = model.OutcomeRequiresAction
		if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
			result.NextActionURL = pi.NextAction.RedirectToURL.URL
		}
	}
	return result
}

// IntentIDFromSecret extracts "pi_123" from a "pi_123_secret_abc" client secret.
func IntentIDFromSecret(clientSecret string) (string, error) {
	i := strings.Index(clientSecret, "_secret_")
	if i <= 0 {
		return "", errors.New("malformed client secret")
	}
	return clientSecret[:i], nil
}
