package internal

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"
)

const (
	// roomCodeAlphabet drops 0/O/1/I so codes survive being read aloud or
	// typed by hand.
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
	maxCodeAttempts  = 1000

	// defaultVideoID seeds new rooms until someone picks a video.
	defaultVideoID = "M7lc1UVf-VE"
)

// ErrCodeExhausted means code generation kept colliding with live rooms. At
// realistic room counts this never fires; the bound only stops a runaway loop.
var ErrCodeExhausted = errors.New("room code space exhausted")

// Hub is the registry of all active rooms, keyed by room code.
type Hub struct {
	mutex sync.RWMutex
	rooms map[string]*Room
}

// NewHub builds an empty registry ready to serve rooms.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Room)}
}

// Exists reports whether a room is currently registered, without creating it.
func (hub *Hub) Exists(code string) bool {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	_, ok := hub.rooms[code]
	return ok
}

// Lookup returns the room for code if one is live.
func (hub *Hub) Lookup(code string) (*Room, bool) {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	room, ok := hub.rooms[code]
	return room, ok
}

// GetOrCreate returns the room for code, lazily creating one with default
// state on first reference. Rooms live for the rest of the process by
// default; EvictIdle is the hook a stricter retention policy goes through.
func (hub *Hub) GetOrCreate(code string) *Room {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return hub.getOrCreateLocked(code)
}

func (hub *Hub) getOrCreateLocked(code string) *Room {
	if room, exists := hub.rooms[code]; exists {
		return room
	}
	room := newRoom(code, defaultVideoID, time.Now())
	hub.rooms[code] = room
	go room.run()
	return room
}

// CreateRoom allocates a fresh unique code and registers a room seeded with
// videoID (the fixed placeholder when empty). Code generation and insertion
// happen under one lock so concurrent creates can never race into the same
// code.
func (hub *Hub) CreateRoom(videoID string) (*Room, error) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := randomRoomCode()
		if _, taken := hub.rooms[code]; taken {
			continue
		}
		room := hub.getOrCreateLocked(code)
		if videoID != "" {
			room.setVideo(videoID, time.Now())
		}
		return room, nil
	}
	return nil, ErrCodeExhausted
}

// GenerateUniqueCode produces a code that no live room holds at generation
// time. Exposed separately from CreateRoom for callers that want to reserve
// nothing.
func (hub *Hub) GenerateUniqueCode() (string, error) {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := randomRoomCode()
		if _, taken := hub.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// Rooms returns a snapshot of all live rooms, for the heartbeat loop.
func (hub *Hub) Rooms() []*Room {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	rooms := make([]*Room, 0, len(hub.rooms))
	for _, room := range hub.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// EvictIdle removes rooms that have no members and have not been touched
// within ttl. Rooms are immortal by default; this only runs when a retention
// TTL is configured on the heartbeat. It returns how many rooms were dropped.
func (hub *Hub) EvictIdle(ttl time.Duration, now time.Time) int {
	if ttl <= 0 {
		return 0
	}
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	evicted := 0
	for code, room := range hub.rooms {
		if room.size() == 0 && now.Sub(room.lastTouched()) > ttl {
			room.shutdown()
			delete(hub.rooms, code)
			evicted++
		}
	}
	return evicted
}

// Size returns the number of live rooms.
func (hub *Hub) Size() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.rooms)
}

func randomRoomCode() string {
	buf := make([]byte, roomCodeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}

// ValidRoomCode checks the wire-visible code format: exactly six characters
// from the fixed alphabet.
func ValidRoomCode(code string) bool {
	if len(code) != roomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		found := false
		for j := 0; j < len(roomCodeAlphabet); j++ {
			if code[i] == roomCodeAlphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
