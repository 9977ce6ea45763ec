package testsupport

import (
	"path/filepath"
	"testing"

	"battrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Ledger.SerialFile = filepath.Join(cfg.Paths.DataDir, "serials.csv")
	cfg.Ledger.SavFile = filepath.Join(cfg.Paths.DataDir, "sav.csv")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithSerialPrefix overrides the serial prefix on the test config.
func WithSerialPrefix(prefix string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ledger.SerialPrefix = prefix
	}
}

// WithCompatibility replaces the unit-type compatibility table.
func WithCompatibility(table map[string][]string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Units.Compatibility = table
	}
}
