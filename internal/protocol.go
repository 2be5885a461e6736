package internal

import (
	"encoding/json"
	"strconv"
)

// Event names shared by the server and every client. These are the wire
// contract: an envelope is {"event": ..., "data": ...} in both directions.
const (
	EventJoinRoom      = "join-room"
	EventRoomState     = "room-state"
	EventSetVideo      = "set-video"
	EventVideoChanged  = "video-changed"
	EventSyncPlay      = "sync-play"
	EventSyncPause     = "sync-pause"
	EventSyncSeek      = "sync-seek"
	EventSyncState     = "sync-state"
	EventChatMessage   = "chat-message"
	EventSystemMessage = "system-message"
	EventJoinError     = "join-error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// inbound payloads

type joinRoomData struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type setVideoData struct {
	VideoID string `json:"videoId"`
}

type syncEventData struct {
	CurrentTime any `json:"currentTime"`
}

type chatMessageData struct {
	Text string `json:"text"`
}

// coerceSeconds mirrors the loose numeric handling clients rely on: numbers
// pass through, numeric strings are parsed, anything else becomes zero.
func coerceSeconds(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	case json.Number:
		if parsed, err := v.Float64(); err == nil {
			return parsed
		}
	}
	return 0
}

// outbound payloads

// SyncPayload is the canonical playback snapshot sent on join, on heartbeat,
// and after every play/pause/seek. ServerNow (unix millis) lets clients
// extrapolate further on their own before the next update arrives.
type SyncPayload struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	ServerNow   int64   `json:"serverNow"`
}

type RoomStatePayload struct {
	RoomCode    string        `json:"roomCode"`
	VideoID     string        `json:"videoId"`
	IsPlaying   bool          `json:"isPlaying"`
	CurrentTime float64       `json:"currentTime"`
	ServerNow   int64         `json:"serverNow"`
	Chat        []ChatMessage `json:"chat"`
}

type VideoChangedPayload struct {
	VideoID string `json:"videoId"`
	By      string `json:"by"`
	At      int64  `json:"at"`
}

type SystemMessagePayload struct {
	Text string `json:"text"`
	At   int64  `json:"at"`
}

type JoinErrorPayload struct {
	Message string `json:"message"`
}

// BroadcastScope names which subset of a room receives an outbound message.
type BroadcastScope int

const (
	ScopeSenderOnly BroadcastScope = iota
	ScopeAll
	ScopeAllExceptSender
)

// Outbound is a dispatcher decision: what to send and to whom. The transport
// layer does the fan-out so the dispatcher stays testable with plain data.
type Outbound struct {
	Scope BroadcastScope
	Event string
	Data  any
}

func (o Outbound) encode() ([]byte, error) {
	data, err := json.Marshal(o.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: o.Event, Data: data})
}
