package testsupport

import (
	"testing"

	"reelhold/internal/config"
	"reelhold/internal/storage"
)

// MustOpenStore opens the sqlite slot store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) storage.Store {
	t.Helper()

	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
