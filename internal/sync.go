package internal

import (
	"log"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is how often every room's state is re-published.
const DefaultHeartbeatInterval = 2500 * time.Millisecond

// EffectiveTime computes the drift-compensated play head of a room at read
// time. While paused the stored position is exact; while playing the wall
// clock elapsed since the last authoritative update is added on. This is what
// lets late joiners and heartbeat receivers land on the right position
// without per-tick network chatter.
func EffectiveTime(state PlaybackState, now time.Time) float64 {
	if !state.IsPlaying {
		return state.CurrentTime
	}
	return state.CurrentTime + now.Sub(state.LastUpdatedAt).Seconds()
}

// BuildSyncPayload produces the canonical snapshot sent to clients on join,
// on heartbeat, and after any play/pause/seek mutation.
func BuildSyncPayload(state PlaybackState, now time.Time) SyncPayload {
	return SyncPayload{
		IsPlaying:   state.IsPlaying,
		CurrentTime: EffectiveTime(state, now),
		ServerNow:   now.UnixMilli(),
	}
}

// Heartbeat re-publishes every room's sync payload on a fixed cadence so
// clients that missed a discrete event (or joined mid-session) self-correct.
type Heartbeat struct {
	hub      *Hub
	interval time.Duration
	roomTTL  time.Duration
	metrics  *Metrics
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHeartbeat wires a broadcaster over the given registry. roomTTL of zero
// keeps rooms for the life of the process (the default policy).
func NewHeartbeat(hub *Hub, interval, roomTTL time.Duration, metrics *Metrics) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{
		hub:      hub,
		interval: interval,
		roomTTL:  roomTTL,
		metrics:  metrics,
		stop:     make(chan struct{}),
	}
}

// Start launches the tick loop. Call Stop on shutdown.
func (hb *Heartbeat) Start() {
	go func() {
		ticker := time.NewTicker(hb.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hb.tick(time.Now())
			case <-hb.stop:
				return
			}
		}
	}()
}

// Stop terminates the loop; safe to call more than once.
func (hb *Heartbeat) Stop() {
	hb.stopOnce.Do(func() { close(hb.stop) })
}

// tick publishes one sync-state frame per room. Each room is handled
// independently: an encode failure or a saturated room only skips that room.
func (hb *Heartbeat) tick(now time.Time) {
	if hb.roomTTL > 0 {
		if evicted := hb.hub.EvictIdle(hb.roomTTL, now); evicted > 0 {
			log.Printf("heartbeat: evicted %d idle rooms", evicted)
		}
	}
	for _, room := range hb.hub.Rooms() {
		payload := BuildSyncPayload(room.Playback(), now)
		frame, err := (Outbound{Scope: ScopeAll, Event: EventSyncState, Data: payload}).encode()
		if err != nil {
			log.Printf("heartbeat: encode room %s: %v", room.Code(), err)
			continue
		}
		room.publish(frame, nil)
	}
	if hb.metrics != nil {
		hb.metrics.IncHeartbeat()
	}
}
