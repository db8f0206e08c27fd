package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/kioku/internal/catalog"
	"github.com/at-ishikawa/kioku/internal/config"
	"github.com/at-ishikawa/kioku/internal/database"
	"github.com/at-ishikawa/kioku/internal/learning"
)

const (
	dbReadyAttempts = 3
	dbReadyDelay    = 500 * time.Millisecond
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.WaitReady(ctx, db, dbReadyAttempts, dbReadyDelay); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// openService wires the database-backed learning service. The returned
// function closes the database.
func openService(ctx context.Context, cfg *config.Config) (*learning.Service, *catalog.Catalog, func(), error) {
	cat, err := catalog.LoadConfigured(ctx, cfg.Catalog)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	serviceConfig, err := learning.NewServiceConfig(cfg, slog.Default())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build service config: %w", err)
	}
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Default().Warn("failed to close database", "error", err)
		}
	}
	return learning.NewService(learning.NewDBStore(db), cat, serviceConfig), cat, closeDB, nil
}
