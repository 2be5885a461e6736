package internal

import (
	"testing"
	"time"
)

func TestLocalPlayheadExtrapolation(t *testing.T) {
	model := NewTUIModel("ws://localhost:8080/ws", "ABC234", "ann")

	if got := model.localPlayhead(time.Now()); got != 0 {
		t.Fatalf("playhead before any sync = %v, want 0", got)
	}

	model.applySync(SyncPayload{IsPlaying: false, CurrentTime: 30, ServerNow: time.Now().UnixMilli()})
	if got := model.localPlayhead(time.Now().Add(time.Minute)); got != 30 {
		t.Fatalf("paused playhead = %v, want 30", got)
	}

	model.applySync(SyncPayload{IsPlaying: true, CurrentTime: 30, ServerNow: time.Now().UnixMilli()})
	got := model.localPlayhead(model.syncSeenAt.Add(5 * time.Second))
	if got < 34.9 || got > 35.1 {
		t.Fatalf("playing playhead = %v, want about 35", got)
	}
}

func TestFormatPlayhead(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{9, "0:09"},
		{75, "1:15"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{-3, "0:00"},
	}
	for _, tc := range cases {
		if got := formatPlayhead(tc.seconds); got != tc.want {
			t.Errorf("formatPlayhead(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestBuildWSURL(t *testing.T) {
	got, err := buildWSURL("ws://localhost:8080")
	if err != nil {
		t.Fatalf("buildWSURL: %v", err)
	}
	if got != "ws://localhost:8080/ws" {
		t.Fatalf("default path = %q, want ws://localhost:8080/ws", got)
	}

	got, err = buildWSURL("wss://example.com/socket")
	if err != nil {
		t.Fatalf("buildWSURL: %v", err)
	}
	if got != "wss://example.com/socket" {
		t.Fatalf("explicit path = %q", got)
	}

	if _, err := buildWSURL("http://example.com"); err == nil {
		t.Fatal("http scheme accepted for the websocket dial")
	}
}

func TestHTTPBaseFromWSURL(t *testing.T) {
	got, err := httpBaseFromWSURL("ws://localhost:8080/ws")
	if err != nil {
		t.Fatalf("httpBaseFromWSURL: %v", err)
	}
	if got != "http://localhost:8080" {
		t.Fatalf("base = %q, want http://localhost:8080", got)
	}

	got, err = httpBaseFromWSURL("wss://example.com/ws?x=1")
	if err != nil {
		t.Fatalf("httpBaseFromWSURL: %v", err)
	}
	if got != "https://example.com" {
		t.Fatalf("base = %q, want https://example.com", got)
	}

	if _, err := httpBaseFromWSURL("ftp://example.com"); err == nil {
		t.Fatal("unsupported scheme accepted")
	}
}
