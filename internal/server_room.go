package internal

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PlaybackState is a point-in-time copy of a room's shared play head.
// CurrentTime is only authoritative as of LastUpdatedAt; while IsPlaying is
// true the effective position must be derived through EffectiveTime.
type PlaybackState struct {
	VideoID       string
	IsPlaying     bool
	CurrentTime   float64
	LastUpdatedAt time.Time
}

// Room holds the synchronized state for one watch session plus the set of
// connected clients. Playback/chat state is guarded by stateMutex; membership
// changes and fan-out are serialized through the run loop.
type Room struct {
	code string

	stateMutex    sync.RWMutex
	videoID       string
	playing       bool
	currentTime   float64
	lastUpdatedAt time.Time
	chatLog       []ChatMessage

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan outboundFrame
	stop       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

// outboundFrame is one encoded envelope plus the client to skip, if any.
type outboundFrame struct {
	payload []byte
	exclude *Client
}

func newRoom(code, videoID string, now time.Time) *Room {
	return &Room{
		code:          code,
		videoID:       videoID,
		lastUpdatedAt: now,
		chatLog:       make([]ChatMessage, 0, 64),
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan outboundFrame, 256),
		stop:          make(chan struct{}),
	}
}

// Code returns the room's unique six-character code.
func (room *Room) Code() string {
	return room.code
}

func (room *Room) size() int {
	room.mutex.RLock()
	defer room.mutex.RUnlock()
	return len(room.clients)
}

func (room *Room) run() {
	for {
		select {
		case client := <-room.register:
			room.mutex.Lock()
			room.clients[client] = true
			room.mutex.Unlock()
		case client := <-room.unregister:
			room.mutex.Lock()
			if _, exists := room.clients[client]; exists {
				delete(room.clients, client)
				close(client.send)
			}
			room.mutex.Unlock()
		case frame := <-room.broadcast:
			// Fan out to everyone except the excluded sender. A client whose
			// send buffer is full gets dropped so it can't back up the room.
			room.mutex.Lock()
			for client := range room.clients {
				if client == frame.exclude {
					continue
				}
				select {
				case client.send <- frame.payload:
				default:
					close(client.send)
					delete(room.clients, client)
				}
			}
			room.mutex.Unlock()
		case <-room.stop:
			room.mutex.Lock()
			for client := range room.clients {
				close(client.send)
				delete(room.clients, client)
			}
			room.mutex.Unlock()
			return
		}
	}
}

func (room *Room) shutdown() {
	room.stopOnce.Do(func() { close(room.stop) })
}

// publish queues an already-encoded frame without ever blocking the caller.
// Dropping under sustained overload is preferable to stalling other rooms.
func (room *Room) publish(payload []byte, exclude *Client) {
	select {
	case room.broadcast <- outboundFrame{payload: payload, exclude: exclude}:
	default:
	}
}

// playback state, guarded by stateMutex

// Playback returns a consistent copy of the shared play head.
func (room *Room) Playback() PlaybackState {
	room.stateMutex.RLock()
	defer room.stateMutex.RUnlock()
	return PlaybackState{
		VideoID:       room.videoID,
		IsPlaying:     room.playing,
		CurrentTime:   room.currentTime,
		LastUpdatedAt: room.lastUpdatedAt,
	}
}

func (room *Room) lastTouched() time.Time {
	room.stateMutex.RLock()
	defer room.stateMutex.RUnlock()
	return room.lastUpdatedAt
}

// setVideo swaps the media item and rewinds the play head.
func (room *Room) setVideo(videoID string, now time.Time) {
	room.stateMutex.Lock()
	defer room.stateMutex.Unlock()
	room.videoID = videoID
	room.currentTime = 0
	room.playing = false
	room.lastUpdatedAt = now
}

// setPlaying records a play or pause at the given position.
func (room *Room) setPlaying(playing bool, seconds float64, now time.Time) {
	room.stateMutex.Lock()
	defer room.stateMutex.Unlock()
	room.playing = playing
	room.currentTime = seconds
	room.lastUpdatedAt = now
}

// seek moves the play head without touching the play/pause flag.
func (room *Room) seek(seconds float64, now time.Time) {
	room.stateMutex.Lock()
	defer room.stateMutex.Unlock()
	room.currentTime = seconds
	room.lastUpdatedAt = now
}

// addChat appends a message, evicting the oldest past the history cap.
func (room *Room) addChat(msg ChatMessage) {
	room.stateMutex.Lock()
	defer room.stateMutex.Unlock()
	room.chatLog = appendChat(room.chatLog, msg)
}

// recentChat returns a copy of the latest n messages.
func (room *Room) recentChat(n int) []ChatMessage {
	room.stateMutex.RLock()
	defer room.stateMutex.RUnlock()
	return chatTail(room.chatLog, n)
}

func (room *Room) chatLen() int {
	room.stateMutex.RLock()
	defer room.stateMutex.RUnlock()
	return len(room.chatLog)
}

// Client wraps one websocket connection, its session, and a buffered send
// queue.
type Client struct {
	server       *Server
	session      *Session
	conn         *websocket.Conn
	send         chan []byte
	messageTimes []time.Time
	room         *Room
}

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 8192
	chatLimitWindow = 3 * time.Second
	chatLimitBurst  = 5
)

func newClient(server *Server, conn *websocket.Conn) *Client {
	return &Client{
		server:       server,
		session:      NewSession(),
		conn:         conn,
		send:         make(chan []byte, 256),
		messageTimes: make([]time.Time, 0, chatLimitBurst),
	}
}

func (client *Client) readPump() {
	server := client.server
	defer func() {
		if client.room != nil {
			client.room.unregister <- client
			for _, out := range server.dispatcher.Disconnect(client.session) {
				client.deliver(out)
			}
			server.presence.Leave(client.session.RoomCode, client.session.Username)
		}
		client.conn.Close()
		server.metrics.DecConn()
	}()
	client.conn.SetReadLimit(maxMsgSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			// Normal close or read error; the deferred cleanup handles it.
			break
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}
		now := time.Now()
		if env.Event == EventChatMessage && !client.allowMessage(now) {
			client.notifyRateLimit(now)
			continue
		}
		wasJoined := client.session.Joined()
		outbounds := server.dispatcher.Dispatch(client.session, env)
		if !wasJoined && client.session.Joined() {
			// The join succeeded; attach to the room before delivering so the
			// joiner also receives the whole-room notices.
			if room, ok := server.hub.Lookup(client.session.RoomCode); ok {
				client.room = room
				room.register <- client
				server.presence.Join(client.session.RoomCode, client.session.Username)
			}
		}
		for _, out := range outbounds {
			client.deliver(out)
		}
	}
}

// deliver routes one dispatcher decision to the transport.
func (client *Client) deliver(out Outbound) {
	frame, err := out.encode()
	if err != nil {
		log.Printf("encode %s: %v", out.Event, err)
		return
	}
	switch out.Scope {
	case ScopeSenderOnly:
		select {
		case client.send <- frame:
		default:
		}
	case ScopeAll:
		if client.room != nil {
			client.room.publish(frame, nil)
		}
	case ScopeAllExceptSender:
		if client.room != nil {
			client.room.publish(frame, client)
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// chat flood control, per connection

func (client *Client) allowMessage(now time.Time) bool {
	cutoff := now.Add(-chatLimitWindow)
	idx := 0
	for _, ts := range client.messageTimes {
		if ts.After(cutoff) {
			client.messageTimes[idx] = ts
			idx++
		}
	}
	client.messageTimes = client.messageTimes[:idx]
	if len(client.messageTimes) >= chatLimitBurst {
		return false
	}
	client.messageTimes = append(client.messageTimes, now)
	return true
}

func (client *Client) notifyRateLimit(now time.Time) {
	out := Outbound{
		Scope: ScopeSenderOnly,
		Event: EventSystemMessage,
		Data: SystemMessagePayload{
			Text: "You're sending messages too quickly. Please wait a moment and try again.",
			At:   now.UnixMilli(),
		},
	}
	client.deliver(out)
}
