package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gautamiivi/together-backend/internal/app"
)

const (
	modeServer = "server"
	modeClient = "client"
	modeLocal  = "local"
)

func main() {
	mode, args := parseMode(os.Args[1:])
	flagSet := flag.NewFlagSet("together", flag.ExitOnError)
	addr := flagSet.String("addr", envOrDefault("TOGETHER_ADDR", defaultAddrForMode(mode)), "server listen address")
	wsPath := flagSet.String("path", envOrDefault("TOGETHER_WS_PATH", "/ws"), "websocket path")
	cachePath := flagSet.String("cache", envOrDefault("TOGETHER_CACHE_PATH", ""), "sqlite search-cache path (defaults to a per-user path)")
	apiKey := flagSet.String("api-key", envOrDefault("TOGETHER_YT_API_KEY", ""), "YouTube Data API key (search stays disabled without it)")
	serverURL := flagSet.String("server-url", envOrDefault("TOGETHER_SERVER", "ws://localhost:8080/ws"), "server websocket URL (client mode)")
	username := flagSet.String("user", envOrDefault("TOGETHER_USER", ""), "display name shown to others in the room")
	roomTTL := flagSet.Duration("room-ttl", 0, "evict empty rooms idle for this long (0 keeps rooms forever)")
	quiet := flagSet.Bool("quiet", false, "suppress informational logs")
	flagSet.Parse(args)

	roomCode := ""
	if remaining := flagSet.Args(); len(remaining) > 0 {
		roomCode = remaining[0]
	}

	serverCfg := app.ServerConfig{
		Addr:         *addr,
		WSPath:       app.NormalizeWSPath(*wsPath),
		CachePath:    *cachePath,
		SearchAPIKey: *apiKey,
		RoomTTL:      *roomTTL,
	}
	if serverCfg.CachePath == "" {
		serverCfg.CachePath = app.DefaultCachePath()
	}

	clientCfg := app.ClientConfig{
		ServerURL: *serverURL,
		Username:  *username,
		RoomCode:  roomCode,
	}

	infof := func(format string, args ...interface{}) {
		if *quiet {
			return
		}
		log.Printf(format, args...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch mode {
	case modeServer:
		err = runServerMode(ctx, serverCfg, infof)
	case modeLocal:
		err = runLocalMode(ctx, serverCfg, clientCfg, infof)
	default:
		err = runClientMode(clientCfg)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "together: %v\n", err)
		os.Exit(1)
	}
}

func runServerMode(ctx context.Context, cfg app.ServerConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		return err
	}
	infof("Together server listening on %s (ws path %s, cache %s)", handle.Addr(), cfg.WSPath, cfg.CachePath)
	return handle.Wait()
}

func runClientMode(cfg app.ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("client mode requires --server-url or TOGETHER_SERVER")
	}
	return app.RunClient(cfg)
}

func runLocalMode(ctx context.Context, serverCfg app.ServerConfig, clientCfg app.ClientConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, serverCfg)
	if err != nil {
		return err
	}
	defer stopServer(handle)

	infof("Starting local Together server on %s (cache %s)", handle.Addr(), serverCfg.CachePath)
	if err := waitForServer(handle.Addr(), 5*time.Second); err != nil {
		return err
	}

	clientCfg.ServerURL = buildWebsocketURL(handle.Addr(), serverCfg.WSPath)
	infof("Launching client against %s", clientCfg.ServerURL)

	if err := app.RunClient(clientCfg); err != nil {
		return err
	}
	stopServer(handle)
	return handle.Wait()
}

func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func buildWebsocketURL(addr, wsPath string) string {
	wsPath = app.NormalizeWSPath(wsPath)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("ws://%s%s", addr, wsPath)
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, port), wsPath)
}

func parseMode(args []string) (string, []string) {
	if len(args) == 0 {
		return modeClient, args
	}
	switch strings.ToLower(args[0]) {
	case modeServer, modeClient, modeLocal:
		return strings.ToLower(args[0]), args[1:]
	}
	return modeClient, args
}

func defaultAddrForMode(mode string) string {
	if mode == modeLocal {
		return "127.0.0.1:0"
	}
	return ":8080"
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func stopServer(handle *app.ServerHandle) {
	if handle == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Stop(shutdownCtx)
}
