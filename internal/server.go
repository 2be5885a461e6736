package internal

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// Server bundles the room registry with everything the HTTP and websocket
// surfaces need: the dispatcher, presence, per-IP limiters, metrics, and the
// optional search proxy.
type Server struct {
	hub           *Hub
	dispatcher    *Dispatcher
	metrics       *Metrics
	presence      *PresenceTracker
	roomLimiter   *RateLimiter
	searchLimiter *RateLimiter
	search        *SearchClient
	startedAt     time.Time
}

// NewServer wires a server over the given registry. search may be nil when no
// API key is configured; the search endpoints then answer 503.
func NewServer(hub *Hub, search *SearchClient) *Server {
	metrics := NewMetrics()
	if search != nil {
		search.metrics = metrics
	}
	return &Server{
		hub:           hub,
		dispatcher:    NewDispatcher(hub, metrics),
		metrics:       metrics,
		presence:      NewPresenceTracker(),
		roomLimiter:   NewRateLimiter(10, time.Minute),
		searchLimiter: NewRateLimiter(30, time.Minute),
		search:        search,
		startedAt:     time.Now(),
	}
}

// Hub exposes the registry, mainly so the lifecycle layer can hand it to the
// heartbeat broadcaster.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Metrics exposes the shared counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// MetricsHandler serves the JSON counters.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
