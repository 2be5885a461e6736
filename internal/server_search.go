package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Gautamiivi/together-backend/internal/storage"
)

const (
	defaultSearchBaseURL = "https://www.googleapis.com/youtube/v3"
	searchCacheTTL       = 15 * time.Minute
	searchMaxResults     = 10
)

// SearchResult is what clients get back from /search and /related. The
// videoId is opaque to the rest of the system.
type SearchResult struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
}

// SearchClient proxies video lookups to the upstream API and caches results
// in SQLite so repeated queries don't burn quota. It is a sidecar: the sync
// core never touches it.
type SearchClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	store      *storage.Store
	cacheTTL   time.Duration
	metrics    *Metrics
}

// NewSearchClient builds a proxy. store may be nil to disable caching;
// baseURL empty defaults to the public API.
func NewSearchClient(apiKey, baseURL string, store *storage.Store) *SearchClient {
	if baseURL == "" {
		baseURL = defaultSearchBaseURL
	}
	return &SearchClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		store:      store,
		cacheTTL:   searchCacheTTL,
	}
}

// Enabled reports whether an API key is configured.
func (c *SearchClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Search resolves a free-text query to a list of videos.
func (c *SearchClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", searchMaxResults))
	params.Set("q", query)
	return c.lookup(ctx, "q:"+query, params)
}

// Related resolves the "related videos" list for a video id.
func (c *SearchClient) Related(ctx context.Context, videoID string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", searchMaxResults))
	params.Set("relatedToVideoId", videoID)
	return c.lookup(ctx, "related:"+videoID, params)
}

func (c *SearchClient) lookup(ctx context.Context, cacheKey string, params url.Values) ([]SearchResult, error) {
	if cached, ok := c.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video search: upstream returned %d", resp.StatusCode)
	}

	var upstream struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("video search: decode: %w", err)
	}

	results := make([]SearchResult, 0, len(upstream.Items))
	for _, item := range upstream.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, SearchResult{
			VideoID:   item.ID.VideoID,
			Title:     item.Snippet.Title,
			Channel:   item.Snippet.ChannelTitle,
			Thumbnail: item.Snippet.Thumbnails.Default.URL,
		})
	}
	c.toCache(ctx, cacheKey, results)
	return results, nil
}

func (c *SearchClient) fromCache(ctx context.Context, key string) ([]SearchResult, bool) {
	if c.store == nil {
		return nil, false
	}
	raw, err := c.store.GetSearchResults(ctx, key, c.cacheTTL)
	if err != nil || raw == nil {
		if c.metrics != nil {
			c.metrics.IncSearchMiss()
		}
		return nil, false
	}
	var results []SearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.IncSearchHit()
	}
	return results, true
}

func (c *SearchClient) toCache(ctx context.Context, key string, results []SearchResult) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	// Cache writes are best effort; a failed insert only costs quota later.
	_ = c.store.PutSearchResults(ctx, key, raw)
}
