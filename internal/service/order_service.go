package service

import (
	"context"
	"errors"
	"fmt"

	"repairshop/internal/model"
	"repairshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	logger    zerolog.Logger
}

// NewOrderService creates the storefront order reader.
func NewOrderService(orderRepo repository.OrderRepository, logger zerolog.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// GetByID returns the persisted order as the customer may see it. Gateway
// and storage references stay on the staff side.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, err
		}
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	view := *order
	view.PaymentIntentID = nil
	view.LabelLocation = nil

	s.logger.Debug().
		Str("order_id", id.String()).
		Str("status", view.Status.String()).
		Msg("order read")

	return &view, nil
}
