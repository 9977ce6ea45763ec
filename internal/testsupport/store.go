package testsupport

import (
	"testing"

	"battrack/internal/config"
	"battrack/internal/ledger"
	"battrack/internal/logging"
)

// MustOpenStore builds a ledger store over the test config and heals the
// ledger files so tests start from an initialized state.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store := ledger.NewStore(cfg, "test", logging.Nop())
	if err := store.EnsureFiles(); err != nil {
		t.Fatalf("ledger.EnsureFiles: %v", err)
	}
	return store
}

// NewRecord creates a placeholder record for tests using the provided store.
func NewRecord(t testing.TB, store *ledger.Store, unitType, creationTS string) ledger.Record {
	t.Helper()

	rec, err := store.NewRecord(unitType, creationTS)
	if err != nil {
		t.Fatalf("store.NewRecord: %v", err)
	}
	return rec
}
