package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/kioku/internal/config"
)

// LoadConfigured loads the catalog from the configured content service, or
// from the configured file when no URL is set.
func LoadConfigured(ctx context.Context, cfg config.CatalogConfig) (*Catalog, error) {
	if cfg.URL == "" {
		cat, err := LoadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("LoadFile(%s) > %w", cfg.File, err)
		}
		slog.Default().Debug("catalog loaded", "file", cfg.File, "items", cat.Len())
		return cat, nil
	}

	loader := NewHTTPLoader(cfg.URL, cfg.Token, cfg.Timeout, cfg.MaxRetryAttempts)
	defer func() {
		if err := loader.Close(); err != nil {
			slog.Default().Warn("failed to close catalog client", "error", err)
		}
	}()
	cat, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("HTTPLoader.Load(%s) > %w", cfg.URL, err)
	}
	slog.Default().Debug("catalog loaded", "url", cfg.URL, "items", cat.Len())
	return cat, nil
}
