package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Gautamiivi/together-backend/internal/app"
)

func main() {
	defaultServer := envOrDefault("TOGETHER_SERVER", "ws://localhost:8080/ws")
	defaultUser := envOrDefault("TOGETHER_USER", "")

	serverURL := flag.String("server", defaultServer, "WebSocket URL (e.g., ws://localhost:8080/ws)")
	username := flag.String("user", defaultUser, "display name shown to others in the room")
	flag.Parse()

	args := flag.Args()
	var roomCode string
	if len(args) >= 1 {
		roomCode = args[0]
	}

	cfg := app.ClientConfig{
		ServerURL: *serverURL,
		RoomCode:  roomCode,
		Username:  *username,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
