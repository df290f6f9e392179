package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repairshop/internal/metrics"
	"repairshop/internal/model"
	"repairshop/internal/payment"
	"repairshop/internal/repository"

	"github.com/rs/zerolog"
)

// settlementService implements SettlementService.
type settlementService struct {
	orderRepo repository.OrderRepository
	dedupe    EventDeduper
	intents   IntentCanceller
	metrics   *metrics.OrderMetrics
	logger    zerolog.Logger
}

// NewSettlementService creates a new settlement service. intents voids the
// gateway intent of orders that settle as failed.
func NewSettlementService(
	orderRepo repository.OrderRepository,
	dedupe EventDeduper,
	intents IntentCanceller,
	m *metrics.OrderMetrics,
	logger zerolog.Logger,
) SettlementService {
	return &settlementService{
		orderRepo: orderRepo,
		dedupe:    dedupe,
		intents:   intents,
		metrics:   m,
		logger:    logger.With().Str("service", "settlement").Logger(),
	}
}

// ApplySettlement moves a created order to succeeded or failed. Redelivered
// events and settlements for an order already in the target status are no-ops.
func (s *settlementService) ApplySettlement(ctx context.Context, settlement *payment.Settlement) error {
	if settlement == nil {
		return nil
	}

	var next model.Status
	switch settlement.Outcome {
	case model.OutcomeSucceeded:
		next = model.StatusSucceeded
	case model.OutcomeFailed:
		next = model.StatusFailed
	default:
		return fmt.Errorf("settlement outcome %q is not definitive", settlement.Outcome)
	}

	logger := s.logger.With().
		Str("event_id", settlement.EventID).
		Str("order_id", settlement.OrderID.String()).
		Str("intent_id", settlement.IntentID).
		Logger()

	seen, err := s.dedupe.CheckAndMark(ctx, settlement.EventID)
	if err != nil {
		return fmt.Errorf("failed to check settlement event: %w", err)
	}
	if seen {
		logger.Debug().Msg("duplicate settlement event ignored")
		return nil
	}

	if err := s.apply(ctx, settlement, next, logger); err != nil {
		if errors.Is(err, model.ErrAmountMismatch) {
			return err
		}
		// Forget the event so the gateway's retry is processed again. This
		// also covers a webhook racing the commit of the order it refers to.
		if delErr := s.dedupe.Delete(ctx, settlement.EventID); delErr != nil {
			logger.Error().Err(delErr).Msg("failed to clear settlement event marker")
		}
		return err
	}
	return nil
}

func (s *settlementService) apply(ctx context.Context, settlement *payment.Settlement, next model.Status, logger zerolog.Logger) error {
	order, err := s.orderRepo.GetByID(ctx, settlement.OrderID)
	if err != nil {
		return err
	}

	if next == model.StatusSucceeded {
		if settlement.AmountMinor != order.Amount || !strings.EqualFold(settlement.Currency, order.Currency) {
			logger.Error().
				Int64("order_amount", order.Amount).
				Int64("settled_amount", settlement.AmountMinor).
				Str("settled_currency", settlement.Currency).
				Msg("settled amount does not match order")
			return model.ErrAmountMismatch
		}
	}

	change, err := s.orderRepo.UpdateStatus(ctx, settlement.OrderID, model.StatusUpdate{
		Next:       next,
		Source:     model.SourceGateway,
		Idempotent: true,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			// The order already left created (e.g. staff refund); the event is
			// stale, not retryable.
			s.metrics.IncRejection("settlement")
			if next == model.StatusSucceeded && order.Status == model.StatusFailed {
				// Money was taken for an order the shop treats as failed.
				s.metrics.IncSettlement("late_success")
				logger.Error().
					Int64("amount", settlement.AmountMinor).
					Msg("charge succeeded on a failed order, refund or mark paid")
				return nil
			}
			logger.Warn().Str("status", order.Status.String()).Str("to", next.String()).Msg("settlement does not apply to current status")
			return nil
		}
		return err
	}

	s.metrics.IncSettlement(string(settlement.Outcome))
	if change.Changed {
		s.metrics.IncTransition(change.From.String(), next.String(), "settlement")
		logger.Info().Str("from", change.From.String()).Str("to", next.String()).Msg("settlement applied")
		if next == model.StatusFailed {
			cancelIntent(ctx, s.intents, change.Order, s.metrics, logger)
		}
	}
	return nil
}
