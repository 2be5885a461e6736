package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gautamiivi/together-backend/internal/app"
)

func main() {
	addr := flag.String("addr", getEnv("TOGETHER_ADDR", ":8080"), "server listen address")
	wsPath := flag.String("path", getEnv("TOGETHER_WS_PATH", "/ws"), "websocket path")
	cachePath := flag.String("cache", getEnv("TOGETHER_CACHE_PATH", ""), "sqlite search-cache path (defaults to a per-user path)")
	apiKey := flag.String("api-key", getEnv("TOGETHER_YT_API_KEY", ""), "YouTube Data API key (search stays disabled without it)")
	heartbeat := flag.Duration("heartbeat", 0, "sync heartbeat interval (default 2.5s)")
	roomTTL := flag.Duration("room-ttl", 0, "evict empty rooms idle for this long (0 keeps rooms forever)")
	flag.Parse()

	cfg := app.ServerConfig{
		Addr:              *addr,
		WSPath:            *wsPath,
		CachePath:         *cachePath,
		SearchAPIKey:      *apiKey,
		HeartbeatInterval: *heartbeat,
		RoomTTL:           *roomTTL,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("Together server listening on %s (ws path %s)", handle.Addr(), app.NormalizeWSPath(cfg.WSPath))

	if err := handle.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
