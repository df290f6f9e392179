package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repairshop/internal/cart"
	"repairshop/internal/metrics"
	"repairshop/internal/model"
	"repairshop/internal/payment"
	"repairshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo      repository.OrderRepository
	catalogRepo    repository.CatalogRepository
	gateway        payment.Gateway
	metrics        *metrics.OrderMetrics
	currency       string
	gatewayTimeout time.Duration
	logger         zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	gateway payment.Gateway,
	m *metrics.OrderMetrics,
	currency string,
	gatewayTimeout time.Duration,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:      orderRepo,
		catalogRepo:    catalogRepo,
		gateway:        gateway,
		metrics:        m,
		currency:       strings.ToLower(currency),
		gatewayTimeout: gatewayTimeout,
		logger:         logger.With().Str("service", "checkout").Logger(),
	}
}

// RequestPaymentIntent validates and re-prices the request, then creates the
// order and the gateway intent inside one transaction.
func (s *checkoutService) RequestPaymentIntent(ctx context.Context, req *model.IntentRequest) (*model.IntentResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("intent request is nil")
	}
	if len(req.Items) == 0 {
		return nil, model.ErrEmptyCart
	}

	c, err := cart.New(req.Items...)
	if err != nil {
		s.logger.Warn().Err(err).Msg("invalid cart line")
		return nil, err
	}
	if c, err = s.reprice(ctx, c); err != nil {
		return nil, err
	}

	routing, err := model.RoutingFromFields(req.RepairType, req.ShippingOption)
	if err != nil {
		return nil, err
	}
	if err := routing.ValidateFor(c.HasRepairPart()); err != nil {
		return nil, err
	}

	if missing := req.Address.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", model.ErrIncompleteAddress, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrIncompleteAddress)
	}

	amount := c.MinorUnits()
	if amount <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive", model.ErrInvalidPrice)
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:             uuid.New(),
		Amount:         amount,
		Currency:       s.currency,
		Cart:           c.Snapshot(),
		RepairType:     routing.RepairType(),
		ShippingOption: routing.ShippingOption(),
		Email:          strings.TrimSpace(req.Email),
		UserID:         req.UserID,
		Address:        req.Address,
		Status:         model.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	intent, err := s.gateway.CreateIntent(gatewayCtx, payment.IntentParams{
		OrderID:     order.ID,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Email:       order.Email,
		UserID:      order.UserID,
		Routing:     routing,
	})
	if err != nil {
		s.metrics.IncIntent("gateway_error")
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("payment intent creation failed")
		return nil, fmt.Errorf("%w: %v", model.ErrGateway, err)
	}

	if err := s.orderRepo.SetPaymentIntent(ctx, tx, order.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	committed = true

	s.metrics.IncIntent("created")
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("amount", order.Amount).
		Str("currency", order.Currency).
		Bool("repair", c.HasRepairPart()).
		Msg("order created with payment intent")

	return &model.IntentResponse{
		OrderID:      order.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       order.Amount,
		Currency:     order.Currency,
	}, nil
}

// reprice checks every line against the catalogue and returns a cart that
// carries the catalogue's names and prices.
func (s *checkoutService) reprice(ctx context.Context, c cart.Cart) (cart.Cart, error) {
	lines := c.Snapshot()
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}

	items, err := s.catalogRepo.GetByIDs(ctx, ids)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("failed to load catalogue: %w", err)
	}
	byID := make(map[string]model.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for i, line := range lines {
		item, ok := byID[line.ID]
		if !ok || item.Type != line.Type {
			s.logger.Warn().Str("item_id", line.ID).Msg("cart item not in catalogue")
			return cart.Cart{}, fmt.Errorf("%w: %s", model.ErrItemNotFound, line.ID)
		}
		if !item.Price.Equal(line.Price) {
			s.logger.Warn().
				Str("item_id", line.ID).
				Str("cart_price", line.Price.String()).
				Str("catalog_price", item.Price.String()).
				Msg("cart price drifted from catalogue")
			return cart.Cart{}, fmt.Errorf("%w: %s", model.ErrPriceMismatch, line.ID)
		}
		lines[i].Name = item.Name
		lines[i].Price = item.Price
	}

	return cart.New(lines...)
}

// ConfirmPayment confirms the intent that belongs to orderID.
func (s *checkoutService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, clientSecret string, details payment.ConfirmDetails) (*payment.ConfirmResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	intentID, err := payment.IntentIDFromSecret(clientSecret)
	if err != nil || order.PaymentIntentID == nil || *order.PaymentIntentID != intentID {
		s.logger.Warn().Str("order_id", orderID.String()).Msg("client secret does not belong to order")
		return nil, fmt.Errorf("%w: client secret does not match order", model.ErrOrderNotFound)
	}
	if order.Status != model.StatusCreated {
		return nil, fmt.Errorf("%w: order is already %s", model.ErrSessionTerminal, order.Status)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	result, err := s.gateway.Confirm(gatewayCtx, clientSecret, details)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("payment confirmation failed")
		return nil, fmt.Errorf("%w: %v", model.ErrGateway, err)
	}

	if result.Outcome.Definitive() {
		if _, err := s.ReconcileConfirmation(ctx, orderID, result.Outcome); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ReconcileConfirmation applies what the client observed.
func (s *checkoutService) ReconcileConfirmation(ctx context.Context, orderID uuid.UUID, outcome model.PaymentOutcome) (*model.Order, error) {
	switch outcome {
	case model.OutcomeFailed:
		change, err := s.orderRepo.UpdateStatus(ctx, orderID, model.StatusUpdate{
			Next:       model.StatusFailed,
			Source:     model.SourceGateway,
			Idempotent: true,
		})
		if err != nil {
			if errors.Is(err, model.ErrInvalidTransition) {
				// Settlement already moved the order on; the gateway's view wins.
				s.logger.Warn().Str("order_id", orderID.String()).Msg("client reported failure for a settled order")
				return s.orderRepo.GetByID(ctx, orderID)
			}
			return nil, err
		}
		if change.Changed {
			s.metrics.IncTransition(change.From.String(), model.StatusFailed.String(), "confirmation")
			gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
			cancelIntent(gatewayCtx, s.gateway, change.Order, s.metrics, s.logger)
			cancel()
		}
		return change.Order, nil

	case model.OutcomeSucceeded:
		order, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == model.StatusCreated {
			s.metrics.IncUnreconciled()
			s.logger.Warn().
				Str("order_id", orderID.String()).
				Msg("client reported success before gateway settlement")
		}
		return order, nil

	default:
		return s.orderRepo.GetByID(ctx, orderID)
	}
}
