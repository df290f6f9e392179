package repository

import (
	"context"
	"fmt"

	"repairshop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// catalogRepository implements the CatalogRepository interface using PostgreSQL.
type catalogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new PostgreSQL-backed catalogue repository.
func NewCatalogRepository(pool *pgxpool.Pool, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

// GetByIDs retrieves multiple catalogue items by their IDs.
func (r *catalogRepository) GetByIDs(ctx context.Context, ids []string) ([]model.CatalogItem, error) {
	if len(ids) == 0 {
		return []model.CatalogItem{}, nil
	}

	query := `
		SELECT id, name, price::text, item_type, created_at
		FROM catalog_items
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query catalogue items by IDs")
		return nil, fmt.Errorf("failed to query catalogue items by IDs: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		var (
			item  model.CatalogItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.Type, &item.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan catalogue row")
			return nil, fmt.Errorf("failed to scan catalogue item: %w", err)
		}
		item.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price of %s: %w", item.ID, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating catalogue rows")
		return nil, fmt.Errorf("error iterating catalogue items: %w", err)
	}

	return items, nil
}

// Upsert inserts or replaces catalogue items in a single batch.
func (r *catalogRepository) Upsert(ctx context.Context, items []model.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO catalog_items (id, name, price, item_type)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, item_type = EXCLUDED.item_type
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		if item.ID == "" || !item.Type.IsValid() || item.Price.IsNegative() {
			return fmt.Errorf("invalid catalogue item %q", item.ID)
		}
		batch.Queue(query, item.ID, item.Name, item.Price.String(), string(item.Type))
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().Err(err).Msg("failed to upsert catalogue item")
			return fmt.Errorf("failed to upsert catalogue items: %w", err)
		}
	}

	r.logger.Info().Int("count", len(items)).Msg("catalogue items upserted")
	return nil
}
