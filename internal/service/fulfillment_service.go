package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repairshop/internal/lock"
	"repairshop/internal/metrics"
	"repairshop/internal/model"
	"repairshop/internal/notification"
	"repairshop/internal/repository"
	"repairshop/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fulfillmentService implements FulfillmentService.
type fulfillmentService struct {
	orderRepo repository.OrderRepository
	labels    storage.LabelStore
	sender    notification.Sender
	locker    OrderLocker
	metrics   *metrics.OrderMetrics
	logger    zerolog.Logger
}

// NewFulfillmentService creates a new fulfillment service.
func NewFulfillmentService(
	orderRepo repository.OrderRepository,
	labels storage.LabelStore,
	sender notification.Sender,
	locker OrderLocker,
	m *metrics.OrderMetrics,
	logger zerolog.Logger,
) FulfillmentService {
	return &fulfillmentService{
		orderRepo: orderRepo,
		labels:    labels,
		sender:    sender,
		locker:    locker,
		metrics:   m,
		logger:    logger.With().Str("service", "fulfillment").Logger(),
	}
}

// ListOrders returns orders for the admin screens.
func (s *fulfillmentService) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, *filter.Status)
	}
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus applies a manual staff edit. It holds the order lease so
// it cannot interleave with a label issuance for the same order.
func (s *fulfillmentService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.Status) (*model.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}

	lease, err := s.acquire(ctx, id, model.ErrOrderBusy)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease, id)

	change, err := s.orderRepo.UpdateStatus(ctx, id, model.StatusUpdate{Next: status, Source: model.SourceStaff})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			s.metrics.IncRejection("staff")
		}
		return nil, err
	}

	s.metrics.IncTransition(change.From.String(), status.String(), "staff")
	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", change.From.String()).
		Str("to", status.String()).
		Msg("staff status edit applied")
	return change.Order, nil
}

// IssueShippingLabel stores the label, notifies the customer and only then
// moves the order to shipped. A failed send leaves the status untouched and
// the call can be retried with the same payload.
func (s *fulfillmentService) IssueShippingLabel(ctx context.Context, id uuid.UUID, req *model.ShippingLabelRequest) (*model.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lease, err := s.acquire(ctx, id, model.ErrLabelInProgress)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease, id)

	logger := s.logger.With().Str("order_id", id.String()).Logger()

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := labelEligible(order); err != nil {
		logger.Warn().Err(err).Str("status", order.Status.String()).Msg("shipping label rejected")
		s.metrics.IncLabel("rejected")
		return nil, err
	}

	location, err := s.labels.Put(ctx, storage.LabelKey(id), storage.Label{
		Filename:    req.Attachment.Filename,
		ContentType: req.Attachment.ContentType,
		Content:     req.Attachment.Content,
	})
	if err != nil {
		s.metrics.IncLabel("storage_failed")
		logger.Error().Err(err).Msg("failed to store shipping label")
		return nil, fmt.Errorf("failed to store shipping label: %w", err)
	}

	if err := s.sender.Send(ctx, labelMessage(order, req)); err != nil {
		s.metrics.IncLabel("notification_failed")
		logger.Error().Err(err).Msg("shipping label notification failed, status unchanged")
		return nil, fmt.Errorf("%w: %v", model.ErrNotificationFailed, err)
	}

	change, err := s.orderRepo.UpdateStatus(ctx, id, model.StatusUpdate{
		Next:   model.StatusShipped,
		Source: model.SourceStaff,
		Note:   &model.ShipmentNote{TrackingNumber: req.TrackingNumber, LabelLocation: location},
	})
	if err != nil {
		s.metrics.IncLabel("transition_failed")
		logger.Error().Err(err).Msg("customer notified but order could not be marked shipped")
		return nil, err
	}

	s.metrics.IncLabel("issued")
	s.metrics.IncTransition(change.From.String(), model.StatusShipped.String(), "label")
	logger.Info().
		Str("from", change.From.String()).
		Str("label", location).
		Msg("shipping label issued")
	return change.Order, nil
}

func labelEligible(order *model.Order) error {
	if !order.Routing().ShipsToCustomer() {
		return model.ErrLabelNotEligible
	}
	switch order.Status {
	case model.StatusShipped, model.StatusFinished:
		return model.ErrLabelAlreadyShipped
	}
	if !model.CanTransition(model.SourceStaff, order.Status, model.StatusShipped) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, order.Status, model.StatusShipped)
	}
	return nil
}

func labelMessage(order *model.Order, req *model.ShippingLabelRequest) notification.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nyour repaired device is on its way.\n", order.Address.Name)
	if req.TrackingNumber != nil {
		fmt.Fprintf(&body, "\nTracking number: %s\n", *req.TrackingNumber)
	}
	if req.Message != nil {
		fmt.Fprintf(&body, "\n%s\n", *req.Message)
	}
	fmt.Fprintf(&body, "\nOrder reference: %s\n", order.ID)

	return notification.Message{
		Recipient: order.Email,
		Subject:   "Your order has shipped",
		Body:      body.String(),
		Attachments: []notification.Attachment{{
			Filename:    req.Attachment.Filename,
			ContentType: req.Attachment.ContentType,
			Content:     req.Attachment.Content,
		}},
	}
}

// acquire takes the order lease. busy is returned when another fulfillment
// call holds it.
func (s *fulfillmentService) acquire(ctx context.Context, id uuid.UUID, busy error) (*lock.Lease, error) {
	lease, err := s.locker.Acquire(ctx, orderLockName(id))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, busy
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return lease, nil
}

func (s *fulfillmentService) release(ctx context.Context, lease *lock.Lease, id uuid.UUID) {
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to release order lock")
	}
}
