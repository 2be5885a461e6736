package app

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Addr              string
	WSPath            string
	CachePath         string
	SearchAPIKey      string
	HeartbeatInterval time.Duration
	// RoomTTL enables idle-room eviction when nonzero. Zero keeps rooms for
	// the life of the process, which is the default policy.
	RoomTTL time.Duration
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string
	Username  string
	RoomCode  string
}

// DefaultCachePath returns a per-user data path for the bundled SQLite
// search cache.
func DefaultCachePath() string {
	if env := os.Getenv("TOGETHER_CACHE_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("TOGETHER_DATA_DIR"); env != "" {
		return filepath.Join(env, "together-cache.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "together", "together-cache.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Together", "together-cache.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Together", "together-cache.db")
		}
		return filepath.Join(home, ".local", "share", "together", "together-cache.db")
	}
	return filepath.Join(".", ".together", "together-cache.db")
}

// NormalizeWSPath guarantees the websocket path starts with '/' and falls
// back to /ws when empty.
func NormalizeWSPath(path string) string {
	if path == "" {
		return "/ws"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
