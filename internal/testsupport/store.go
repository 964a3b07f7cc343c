package testsupport

import (
	"context"
	"testing"

	"edgarfeed/internal/config"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/store"
)

// MustOpenStore opens the configured store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.DB {
	t.Helper()

	db, err := store.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
