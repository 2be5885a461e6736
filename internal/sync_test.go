package internal

import (
	"math"
	"testing"
	"time"
)

func TestEffectiveTimePaused(t *testing.T) {
	updated := time.Now()
	state := PlaybackState{IsPlaying: false, CurrentTime: 42.5, LastUpdatedAt: updated}
	if got := EffectiveTime(state, updated.Add(time.Hour)); got != 42.5 {
		t.Fatalf("paused effective time = %v, want 42.5 regardless of elapsed time", got)
	}
}

func TestEffectiveTimePlaying(t *testing.T) {
	updated := time.Now()
	state := PlaybackState{IsPlaying: true, CurrentTime: 5, LastUpdatedAt: updated}
	got := EffectiveTime(state, updated.Add(8*time.Second))
	if math.Abs(got-13) > 1e-9 {
		t.Fatalf("playing effective time = %v, want 13", got)
	}
}

func TestEffectiveTimeMonotonicWhilePlaying(t *testing.T) {
	updated := time.Now()
	state := PlaybackState{IsPlaying: true, CurrentTime: 100, LastUpdatedAt: updated}
	previous := EffectiveTime(state, updated)
	for i := 1; i <= 10; i++ {
		now := updated.Add(time.Duration(i) * 300 * time.Millisecond)
		current := EffectiveTime(state, now)
		if current < previous {
			t.Fatalf("effective time regressed: %v < %v at step %d", current, previous, i)
		}
		previous = current
	}
}

func TestBuildSyncPayload(t *testing.T) {
	updated := time.Now()
	now := updated.Add(4 * time.Second)
	state := PlaybackState{IsPlaying: true, CurrentTime: 10, LastUpdatedAt: updated}
	payload := BuildSyncPayload(state, now)
	if !payload.IsPlaying {
		t.Fatal("payload should report playing")
	}
	if math.Abs(payload.CurrentTime-14) > 1e-9 {
		t.Fatalf("payload current time = %v, want 14", payload.CurrentTime)
	}
	if payload.ServerNow != now.UnixMilli() {
		t.Fatalf("payload serverNow = %d, want %d", payload.ServerNow, now.UnixMilli())
	}
}

func TestNewHeartbeatDefaultInterval(t *testing.T) {
	hb := NewHeartbeat(NewHub(), 0, 0, nil)
	if hb.interval != DefaultHeartbeatInterval {
		t.Fatalf("interval = %v, want %v", hb.interval, DefaultHeartbeatInterval)
	}
	hb = NewHeartbeat(NewHub(), time.Second, 0, nil)
	if hb.interval != time.Second {
		t.Fatalf("interval = %v, want 1s", hb.interval)
	}
}

func TestHeartbeatTickCountsAndSurvivesEmptyHub(t *testing.T) {
	hub := NewHub()
	metrics := NewMetrics()
	hb := NewHeartbeat(hub, time.Second, 0, metrics)

	hb.tick(time.Now())
	hub.GetOrCreate("ABC234")
	hb.tick(time.Now())

	if got := metrics.heartbeatTicks.Load(); got != 2 {
		t.Fatalf("heartbeat ticks = %d, want 2", got)
	}
	if hub.Size() != 1 {
		t.Fatalf("hub size = %d after ticks without ttl, want 1", hub.Size())
	}
}

func TestHeartbeatTickEvictsWithTTL(t *testing.T) {
	hub := NewHub()
	hub.GetOrCreate("ABC234")
	hb := NewHeartbeat(hub, time.Second, time.Minute, nil)

	hb.tick(time.Now().Add(time.Hour))

	if hub.Size() != 0 {
		t.Fatalf("hub size = %d after ttl tick, want 0", hub.Size())
	}
}

func TestHeartbeatStopIsIdempotent(t *testing.T) {
	hb := NewHeartbeat(NewHub(), time.Second, 0, nil)
	hb.Start()
	hb.Stop()
	hb.Stop()
}
