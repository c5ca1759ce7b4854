package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"xrdisplay/internal/config"
	"xrdisplay/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// RecordOverride inserts an active override row for tests.
func RecordOverride(t testing.TB, st *store.Store, cardIndex int, connector string, descriptor []byte) *store.Override {
	t.Helper()

	o, err := st.RecordApplied(context.Background(), store.Override{
		RunID:     "test-run",
		Vendor:    "MRG",
		Model:     "Air",
		CardIndex: cardIndex,
		Connector: connector,
		Token:     uuid.New(),
		EDID:      descriptor,
	})
	if err != nil {
		t.Fatalf("store.RecordApplied: %v", err)
	}
	return o
}
