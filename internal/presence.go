package internal

import (
	"sort"
	"sync"
)

// PresenceTracker keeps counts of active connections per room and username.
// The same name can join a room from several connections; it stays present
// until the last one drops.
type PresenceTracker struct {
	mu      sync.Mutex
	members map[string]map[string]int
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{members: make(map[string]map[string]int)}
}

func (p *PresenceTracker) Join(roomCode, username string) {
	if roomCode == "" || username == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.members[roomCode]
	if room == nil {
		room = make(map[string]int)
		p.members[roomCode] = room
	}
	room[username]++
}

func (p *PresenceTracker) Leave(roomCode, username string) {
	if roomCode == "" || username == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.members[roomCode]
	if room == nil {
		return
	}
	if count := room[username]; count <= 1 {
		delete(room, username)
	} else {
		room[username] = count - 1
	}
	if len(room) == 0 {
		delete(p.members, roomCode)
	}
}

// Count returns the number of distinct participants in a room.
func (p *PresenceTracker) Count(roomCode string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members[roomCode])
}

// Names returns the distinct participant names in a room, sorted so the
// snapshot endpoint stays stable across calls.
func (p *PresenceTracker) Names(roomCode string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.members[roomCode]))
	for name := range p.members[roomCode] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OccupiedRooms returns how many rooms currently have at least one member.
func (p *PresenceTracker) OccupiedRooms() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}
