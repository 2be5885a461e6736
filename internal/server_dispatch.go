package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the explicit per-connection identity handed to every dispatch
// call. RoomCode and Username are set exactly once, on a successful join;
// a session with no room is a no-op target for every mutating event, which is
// the guard against unassociated connections.
type Session struct {
	ID       string
	RoomCode string
	Username string
}

// NewSession mints a session for a fresh connection.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Joined reports whether the session has been attached to a room.
func (s *Session) Joined() bool {
	return s.RoomCode != ""
}

// Dispatcher applies inbound protocol events to room state and decides what
// goes back out and to whom. It never touches the transport: fan-out intent
// is returned as Outbound values for the caller to deliver.
type Dispatcher struct {
	hub     *Hub
	metrics *Metrics
	clock   func() time.Time
}

// NewDispatcher builds a dispatcher over the registry. The clock is
// injectable for tests.
func NewDispatcher(hub *Hub, metrics *Metrics) *Dispatcher {
	return &Dispatcher{hub: hub, metrics: metrics, clock: time.Now}
}

// Dispatch validates and applies one event. Validation always precedes
// mutation, so an invalid event never leaves a room half-updated. Events from
// unjoined sessions (other than join-room) are dropped silently: they signal
// a client bug, not a user-facing condition.
func (d *Dispatcher) Dispatch(sess *Session, env Envelope) []Outbound {
	if d.metrics != nil {
		d.metrics.IncEvent()
	}
	switch env.Event {
	case EventJoinRoom:
		return d.handleJoin(sess, env.Data)
	case EventSetVideo:
		return d.handleSetVideo(sess, env.Data)
	case EventSyncPlay:
		return d.handleSync(sess, env.Data, EventSyncPlay)
	case EventSyncPause:
		return d.handleSync(sess, env.Data, EventSyncPause)
	case EventSyncSeek:
		return d.handleSync(sess, env.Data, EventSyncSeek)
	case EventChatMessage:
		return d.handleChat(sess, env.Data)
	default:
		return nil
	}
}

// Disconnect is the only cancellation signal a participant has. It emits a
// best-effort "left" notice; the room itself survives.
func (d *Dispatcher) Disconnect(sess *Session) []Outbound {
	if !sess.Joined() {
		return nil
	}
	now := d.clock()
	return []Outbound{{
		Scope: ScopeAll,
		Event: EventSystemMessage,
		Data:  SystemMessagePayload{Text: fmt.Sprintf("%s left the room", sess.Username), At: now.UnixMilli()},
	}}
}

func (d *Dispatcher) handleJoin(sess *Session, raw json.RawMessage) []Outbound {
	if sess.Joined() {
		// Joining is one-way; rejoining needs a fresh connection.
		return nil
	}
	var data joinRoomData
	if err := json.Unmarshal(raw, &data); err != nil {
		return joinError("malformed join request")
	}
	username := strings.TrimSpace(data.Username)
	if username == "" {
		return joinError("username is required")
	}
	if !ValidRoomCode(data.RoomCode) {
		return joinError("invalid room code")
	}
	room, ok := d.hub.Lookup(data.RoomCode)
	if !ok {
		// Joins never create rooms; only explicit creation allocates codes.
		return joinError("room not found")
	}

	sess.RoomCode = data.RoomCode
	sess.Username = username

	now := d.clock()
	state := room.Playback()
	snapshot := RoomStatePayload{
		RoomCode:    room.Code(),
		VideoID:     state.VideoID,
		IsPlaying:   state.IsPlaying,
		CurrentTime: EffectiveTime(state, now),
		ServerNow:   now.UnixMilli(),
		Chat:        room.recentChat(joinChatTail),
	}
	return []Outbound{
		{Scope: ScopeSenderOnly, Event: EventRoomState, Data: snapshot},
		{Scope: ScopeAll, Event: EventSystemMessage, Data: SystemMessagePayload{
			Text: fmt.Sprintf("%s joined the room", username),
			At:   now.UnixMilli(),
		}},
	}
}

func (d *Dispatcher) handleSetVideo(sess *Session, raw json.RawMessage) []Outbound {
	room, ok := d.joinedRoom(sess)
	if !ok {
		return nil
	}
	var data setVideoData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	videoID := strings.TrimSpace(data.VideoID)
	if videoID == "" {
		return nil
	}
	now := d.clock()
	room.setVideo(videoID, now)
	return []Outbound{{
		Scope: ScopeAll,
		Event: EventVideoChanged,
		Data:  VideoChangedPayload{VideoID: videoID, By: sess.Username, At: now.UnixMilli()},
	}}
}

// handleSync covers play, pause and seek; they differ only in how the flag is
// touched. The sender is excluded from the broadcast: its local player is
// already at the authoritative position and an echo would jitter it.
func (d *Dispatcher) handleSync(sess *Session, raw json.RawMessage, event string) []Outbound {
	room, ok := d.joinedRoom(sess)
	if !ok {
		return nil
	}
	var data syncEventData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil
		}
	}
	seconds := coerceSeconds(data.CurrentTime)
	now := d.clock()
	switch event {
	case EventSyncPlay:
		room.setPlaying(true, seconds, now)
	case EventSyncPause:
		room.setPlaying(false, seconds, now)
	case EventSyncSeek:
		room.seek(seconds, now)
	}
	return []Outbound{{
		Scope: ScopeAllExceptSender,
		Event: event,
		Data:  BuildSyncPayload(room.Playback(), now),
	}}
}

func (d *Dispatcher) handleChat(sess *Session, raw json.RawMessage) []Outbound {
	room, ok := d.joinedRoom(sess)
	if !ok {
		return nil
	}
	var data chatMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	if strings.TrimSpace(data.Text) == "" {
		return nil
	}
	msg := newChatMessage(sess.Username, data.Text, d.clock())
	room.addChat(msg)
	if d.metrics != nil {
		d.metrics.IncChat()
	}
	// The sender gets the echo too; that is its delivery ack.
	return []Outbound{{Scope: ScopeAll, Event: EventChatMessage, Data: msg}}
}

func (d *Dispatcher) joinedRoom(sess *Session) (*Room, bool) {
	if !sess.Joined() {
		return nil, false
	}
	return d.hub.Lookup(sess.RoomCode)
}

func joinError(message string) []Outbound {
	return []Outbound{{Scope: ScopeSenderOnly, Event: EventJoinError, Data: JoinErrorPayload{Message: message}}}
}
