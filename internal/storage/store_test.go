package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSearchCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	payload, _ := json.Marshal([]map[string]string{{"videoId": "abc"}})
	if err := store.PutSearchResults(ctx, "q:cats", payload); err != nil {
		t.Fatalf("PutSearchResults: %v", err)
	}

	got, err := store.GetSearchResults(ctx, "q:cats", time.Hour)
	if err != nil {
		t.Fatalf("GetSearchResults: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("cached payload = %s, want %s", got, payload)
	}

	missing, err := store.GetSearchResults(ctx, "q:dogs", time.Hour)
	if err != nil {
		t.Fatalf("GetSearchResults missing key: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for a missing key, got %s", missing)
	}
}

func TestSearchCacheUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.PutSearchResults(ctx, "q:cats", []byte(`["old"]`)); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := store.PutSearchResults(ctx, "q:cats", []byte(`["new"]`)); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := store.GetSearchResults(ctx, "q:cats", time.Hour)
	if err != nil {
		t.Fatalf("GetSearchResults: %v", err)
	}
	if string(got) != `["new"]` {
		t.Fatalf("cached payload = %s, want the replacement", got)
	}
}

func TestSearchCacheStaleness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.PutSearchResults(ctx, "q:cats", []byte(`["x"]`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	stale, err := store.GetSearchResults(ctx, "q:cats", time.Millisecond)
	if err != nil {
		t.Fatalf("GetSearchResults: %v", err)
	}
	if stale != nil {
		t.Fatalf("expected nil for a stale entry, got %s", stale)
	}

	fresh, err := store.GetSearchResults(ctx, "q:cats", time.Hour)
	if err != nil {
		t.Fatalf("GetSearchResults: %v", err)
	}
	if fresh == nil {
		t.Fatal("entry should still be readable with a generous maxAge")
	}
}

func TestPruneExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.PutSearchResults(ctx, "q:cats", []byte(`["x"]`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	pruned, err := store.PruneExpired(ctx, time.Millisecond)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}
	got, err := store.GetSearchResults(ctx, "q:cats", time.Hour)
	if err != nil {
		t.Fatalf("GetSearchResults: %v", err)
	}
	if got != nil {
		t.Fatalf("entry survived pruning: %s", got)
	}
}
