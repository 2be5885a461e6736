package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Gautamiivi/together-backend/internal/storage"
)

const fakeUpstreamBody = `{
	"items": [
		{"id": {"videoId": "vid-1"}, "snippet": {"title": "First", "channelTitle": "Chan A", "thumbnails": {"default": {"url": "http://thumb/1"}}}},
		{"id": {"videoId": ""}, "snippet": {"title": "Channel result, no video id", "channelTitle": "Chan B"}},
		{"id": {"videoId": "vid-2"}, "snippet": {"title": "Second", "channelTitle": "Chan C", "thumbnails": {"default": {"url": "http://thumb/2"}}}}
	]
}`

func newSearchTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestSearchClientEnabled(t *testing.T) {
	if NewSearchClient("", "", nil).Enabled() {
		t.Fatal("client without a key reports enabled")
	}
	if !NewSearchClient("key", "", nil).Enabled() {
		t.Fatal("client with a key reports disabled")
	}
	var nilClient *SearchClient
	if nilClient.Enabled() {
		t.Fatal("nil client reports enabled")
	}
}

func TestSearchParsesUpstream(t *testing.T) {
	var upstreamHits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		if got := r.URL.Query().Get("q"); got != "cats" {
			t.Errorf("upstream query = %q, want cats", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("upstream key = %q, want test-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fakeUpstreamBody))
	}))
	defer upstream.Close()

	client := NewSearchClient("test-key", upstream.URL, nil)
	results, err := client.Search(context.Background(), "cats")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (entries without a videoId are dropped)", len(results))
	}
	if results[0].VideoID != "vid-1" || results[0].Title != "First" || results[0].Channel != "Chan A" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if upstreamHits.Load() != 1 {
		t.Fatalf("upstream hits = %d, want 1", upstreamHits.Load())
	}
}

func TestSearchServesRepeatsFromCache(t *testing.T) {
	var upstreamHits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fakeUpstreamBody))
	}))
	defer upstream.Close()

	store := newSearchTestStore(t)
	client := NewSearchClient("test-key", upstream.URL, store)
	client.metrics = NewMetrics()

	ctx := context.Background()
	first, err := client.Search(ctx, "cats")
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	second, err := client.Search(ctx, "cats")
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if upstreamHits.Load() != 1 {
		t.Fatalf("upstream hits = %d, want 1 (second lookup should come from cache)", upstreamHits.Load())
	}
	if len(first) != len(second) || second[0].VideoID != first[0].VideoID {
		t.Fatalf("cached results differ: %+v vs %+v", first, second)
	}
	if hits := client.metrics.searchHits.Load(); hits != 1 {
		t.Fatalf("cache hits = %d, want 1", hits)
	}

	// A different query and the related lookup use separate cache keys.
	if _, err := client.Related(ctx, "vid-1"); err != nil {
		t.Fatalf("Related: %v", err)
	}
	if upstreamHits.Load() != 2 {
		t.Fatalf("upstream hits = %d, want 2 after a related lookup", upstreamHits.Load())
	}
}

func TestSearchUpstreamErrorSurfaces(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer upstream.Close()

	client := NewSearchClient("test-key", upstream.URL, nil)
	if _, err := client.Search(context.Background(), "cats"); err == nil {
		t.Fatal("expected an error from a failing upstream")
	}
}
