// Package testutil provides shared test helpers for creating config files and catalog fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/kioku/internal/catalog"
)

// CatalogItems is the fixture written by SetupTestConfig.
var CatalogItems = []catalog.Item{
	{ID: "vocab-apple", SkillCategory: "vocabulary", Difficulty: 1, XPBase: 10, CorrectAnswer: "apple"},
	{ID: "vocab-river", SkillCategory: "vocabulary", Difficulty: 1, XPBase: 10, CorrectAnswer: "river"},
	{ID: "grammar-past", SkillCategory: "grammar", Difficulty: 2, XPBase: 15},
	{ID: "listening-1", SkillCategory: "listening", Difficulty: 3, XPBase: 20},
}

// ConfigOption configures optional fields when creating a config file.
type ConfigOption func(*testConfig)

type testConfig struct {
	catalogURL       string
	achievementsFile string
	databasePort     int
}

// WithCatalogURL makes the config fetch the catalog from url instead of the local fixture.
func WithCatalogURL(url string) ConfigOption {
	return func(cfg *testConfig) {
		cfg.catalogURL = url
	}
}

// WithAchievementsFile points the config at an achievements definition file.
func WithAchievementsFile(path string) ConfigOption {
	return func(cfg *testConfig) {
		cfg.achievementsFile = path
	}
}

// WithDatabasePort overrides the database port. The default port refuses connections.
func WithDatabasePort(port int) ConfigOption {
	return func(cfg *testConfig) {
		cfg.databasePort = port
	}
}

// SetupTestConfig writes the catalog fixture and a config file referencing it.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string, opts ...ConfigOption) string {
	t.Helper()

	cfg := testConfig{databasePort: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `database:
  host: 127.0.0.1
  port: %d
  database: kioku_test
  username: kioku
engine:
  timezone: UTC
catalog:
  timeout: 1s
  max_retry_attempts: 1
`, cfg.databasePort)

	if cfg.catalogURL != "" {
		fmt.Fprintf(&b, "  url: %s\n", cfg.catalogURL)
	} else {
		catalogPath := filepath.Join(tmpDir, "catalog.yml")
		WriteCatalog(t, catalogPath, CatalogItems)
		fmt.Fprintf(&b, "  file: %s\n", catalogPath)
	}
	if cfg.achievementsFile != "" {
		fmt.Fprintf(&b, "achievements:\n  file: %s\n", cfg.achievementsFile)
	}

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(b.String()), 0644))
	return cfgPath
}

// WriteCatalog writes items as a YAML catalog file.
func WriteCatalog(t *testing.T, path string, items []catalog.Item) {
	t.Helper()

	content, err := yaml.Marshal(map[string][]catalog.Item{"items": items})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, content, 0644))
}
