package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, amount, currency, cart_snapshot, repair_type, shipping_option, email, user_id,
	address, status, payment_intent_id, tracking_number, label_location, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	if order.Status == "" {
		order.Status = model.StatusCreated
	}
	if order.Status != model.StatusCreated {
		return fmt.Errorf("%w: new orders start in %s", model.ErrInvalidStatus, model.StatusCreated)
	}

	cart, err := json.Marshal(order.Cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	address, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to encode address: %w", err)
	}

	query := `
		INSERT INTO orders (id, amount, currency, cart_snapshot, repair_type, shipping_option,
			email, user_id, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.Exec(ctx, query,
		order.ID,
		order.Amount,
		order.Currency,
		cart,
		order.RepairType,
		order.ShippingOption,
		order.Email,
		order.UserID,
		address,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int64("amount", order.Amount).
		Msg("order created successfully")

	return nil
}

// SetPaymentIntent records the gateway intent id within the provided transaction.
func (r *orderRepository) SetPaymentIntent(ctx context.Context, tx pgx.Tx, id uuid.UUID, intentID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1`,
		id, intentID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to set payment intent")
		return fmt.Errorf("failed to set payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// List retrieves orders newest first, optionally filtered by status.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	limit := clampLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var status *string
	if filter.Status != nil {
		s := filter.Status.String()
		status = &s
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus reads the current status under a row lock, validates the edge
// and writes the new status in the same transaction. Concurrent writers to the
// same order serialise on the lock and each validates against what the
// previous one committed.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, update model.StatusUpdate) (*model.StatusChange, error) {
	if !update.Next.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, update.Next)
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx, r.logger)

	var current model.Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	if update.Idempotent && current == update.Next {
		order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		if err != nil {
			return nil, fmt.Errorf("failed to reload order: %w", err)
		}
		return &model.StatusChange{Order: order, From: current, Changed: false}, nil
	}

	if err := model.ValidateTransition(update.Source, current, update.Next); err != nil {
		r.logger.Warn().
			Str("order_id", id.String()).
			Str("from", current.String()).
			Str("to", update.Next.String()).
			Str("source", string(update.Source)).
			Msg("status transition rejected")
		return nil, err
	}

	var tracking, location *string
	if update.Note != nil {
		tracking = update.Note.TrackingNumber
		if update.Note.LabelLocation != "" {
			location = &update.Note.LabelLocation
		}
	}

	query := `
		UPDATE orders
		SET status = $2,
			tracking_number = COALESCE($3, tracking_number),
			label_location = COALESCE($4, label_location),
			updated_at = $5
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(tx.QueryRow(ctx, query, id, update.Next, tracking, location, time.Now().UTC()))
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit status update")
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	r.logger.Info().
		Str("order_id", id.String()).
		Str("from", current.String()).
		Str("to", update.Next.String()).
		Str("source", string(update.Source)).
		Msg("order status updated")

	return &model.StatusChange{Order: order, From: current, Changed: true}, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o              model.Order
		cart, address  []byte
		repairType     *string
		shippingOption *string
	)
	err := row.Scan(
		&o.ID,
		&o.Amount,
		&o.Currency,
		&cart,
		&repairType,
		&shippingOption,
		&o.Email,
		&o.UserID,
		&address,
		&o.Status,
		&o.PaymentIntentID,
		&o.TrackingNumber,
		&o.LabelLocation,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(cart, &o.Cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}

	if repairType != nil {
		rt := model.RepairType(*repairType)
		o.RepairType = &rt
	}
	if shippingOption != nil {
		so := model.ShippingOption(*shippingOption)
		o.ShippingOption = &so
	} else if o.RepairType != nil && *o.RepairType == model.RepairTypeByUs {
		// Rows written before shipping option was mandatory for shop repairs.
		so := model.ShippingAtShop
		o.ShippingOption = &so
	}

	return &o, nil
}
