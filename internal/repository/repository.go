package repository

import (
	"context"

	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository defines the interface for catalogue data access operations.
type CatalogRepository interface {
	// GetByIDs retrieves the catalogue entries for the given IDs. Unknown IDs
	// are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]model.CatalogItem, error)

	// Upsert inserts or replaces catalogue entries by ID.
	Upsert(ctx context.Context, items []model.CatalogItem) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// SetPaymentIntent records the gateway intent id within the provided transaction.
	SetPaymentIntent(ctx context.Context, tx pgx.Tx, id uuid.UUID, intentID string) error

	// GetByID retrieves an order. Returns model.ErrOrderNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List retrieves orders newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus locks the row, validates the transition against the
	// persisted status and applies it.
	UpdateStatus(ctx context.Context, id uuid.UUID, update model.StatusUpdate) (*model.StatusChange, error)
}
