package internal

import "testing"

func TestPresenceJoinLeave(t *testing.T) {
	presence := NewPresenceTracker()
	presence.Join("ABC234", "ann")
	presence.Join("ABC234", "bo")
	if got := presence.Count("ABC234"); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	names := presence.Names("ABC234")
	if len(names) != 2 || names[0] != "ann" || names[1] != "bo" {
		t.Fatalf("names = %v, want sorted [ann bo]", names)
	}
	presence.Leave("ABC234", "ann")
	if got := presence.Count("ABC234"); got != 1 {
		t.Fatalf("count after leave = %d, want 1", got)
	}
	presence.Leave("ABC234", "bo")
	if got := presence.OccupiedRooms(); got != 0 {
		t.Fatalf("occupied rooms = %d, want 0 after everyone left", got)
	}
}

func TestPresenceSameNameMultipleConnections(t *testing.T) {
	presence := NewPresenceTracker()
	presence.Join("ABC234", "ann")
	presence.Join("ABC234", "ann")
	if got := presence.Count("ABC234"); got != 1 {
		t.Fatalf("count = %d, want 1 distinct participant", got)
	}
	presence.Leave("ABC234", "ann")
	if got := presence.Count("ABC234"); got != 1 {
		t.Fatalf("count = %d, want 1 while a connection remains", got)
	}
	presence.Leave("ABC234", "ann")
	if got := presence.Count("ABC234"); got != 0 {
		t.Fatalf("count = %d, want 0 after the last connection dropped", got)
	}
}

func TestPresenceIgnoresBlanks(t *testing.T) {
	presence := NewPresenceTracker()
	presence.Join("", "ann")
	presence.Join("ABC234", "")
	if got := presence.OccupiedRooms(); got != 0 {
		t.Fatalf("blank joins registered %d rooms", got)
	}
	// Leaves for untracked pairs must not panic.
	presence.Leave("ABC234", "ann")
}
