// Command seedcatalog loads catalogue items from a JSON file into the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"repairshop/internal/config"
	"repairshop/internal/database"
	"repairshop/internal/model"
	"repairshop/internal/repository"
)

func main() {
	path := flag.String("file", "data/catalog.json", "JSON array of catalogue items")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var items []model.CatalogItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := repository.NewCatalogRepository(pool, logger).Upsert(ctx, items); err != nil {
		return err
	}

	logger.Info().Int("count", len(items)).Str("file", path).Msg("catalogue seeded")
	return nil
}
