package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	intrnl "github.com/Gautamiivi/together-backend/internal"
	"github.com/Gautamiivi/together-backend/internal/storage"
)

// ServerHandle represents a running HTTP/WebSocket server instance.
type ServerHandle struct {
	addr      string
	server    *http.Server
	store     *storage.Store
	heartbeat *intrnl.Heartbeat
	done      chan struct{}
	err       error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer wires the registry, dispatcher, heartbeat, and search cache, then
// starts serving in the background. Call Stop/Wait to manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig) (*ServerHandle, error) {
	cfg.WSPath = NormalizeWSPath(cfg.WSPath)
	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	store, err := storage.NewStore(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate cache store: %w", err)
	}

	hub := intrnl.NewHub()
	search := intrnl.NewSearchClient(cfg.SearchAPIKey, "", store)
	server := intrnl.NewServer(hub, search)
	heartbeat := intrnl.NewHeartbeat(hub, cfg.HeartbeatInterval, cfg.RoomTTL, server.Metrics())
	heartbeat.Start()

	mux := http.NewServeMux()
	registerHandlers(mux, cfg.WSPath, server)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		heartbeat.Stop()
		_ = store.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	handle := &ServerHandle{
		addr:      listener.Addr().String(),
		server:    httpServer,
		store:     store,
		heartbeat: heartbeat,
		done:      make(chan struct{}),
	}

	go func() {
		if ctx == nil {
			return
		}
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	h.heartbeat.Stop()
	if err := h.store.Close(); err != nil {
		log.Printf("cache store close error: %v", err)
	}
	h.err = err
}

func registerHandlers(mux *http.ServeMux, wsPath string, server *intrnl.Server) {
	mux.HandleFunc(wsPath, server.ServeWS)
	mux.HandleFunc("/rooms", server.HandleRooms)
	mux.HandleFunc("/rooms/", server.HandleRoomSnapshot)
	mux.HandleFunc("/exists", server.HandleRoomExists)
	mux.HandleFunc("/search", server.HandleSearch)
	mux.HandleFunc("/related", server.HandleRelated)
	mux.HandleFunc("/healthz", server.HandleHealth)
	mux.Handle("/metrics", server.MetricsHandler())
}
