package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type createRoomRequest struct {
	VideoID string `json:"videoId"`
}

type createRoomResponse struct {
	RoomCode string `json:"roomCode"`
	VideoID  string `json:"videoId"`
}

type roomSnapshotResponse struct {
	RoomCode     string   `json:"roomCode"`
	VideoID      string   `json:"videoId"`
	IsPlaying    bool     `json:"isPlaying"`
	CurrentTime  float64  `json:"currentTime"`
	Participants int      `json:"participants"`
	Members      []string `json:"members"`
}

// HandleCreateRoom allocates a fresh room, optionally seeded with a starting
// video. This is the only path that brings new codes into existence.
func (s *Server) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.roomLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req createRoomRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	room, err := s.hub.CreateRoom(strings.TrimSpace(req.VideoID))
	if err != nil {
		if errors.Is(err, ErrCodeExhausted) {
			writeError(w, http.StatusInsufficientStorage, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncRoomCreated()
	state := room.Playback()
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomCode: room.Code(), VideoID: state.VideoID})
}

// HandleRoomSnapshot serves GET /rooms/{code}: the drift-compensated room
// state, or 404. Reading never creates a room.
func (s *Server) HandleRoomSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	code := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/rooms/"))
	if code == "" || strings.Contains(code, "/") {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	room, ok := s.hub.Lookup(code)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	now := time.Now()
	state := room.Playback()
	writeJSON(w, http.StatusOK, roomSnapshotResponse{
		RoomCode:     room.Code(),
		VideoID:      state.VideoID,
		IsPlaying:    state.IsPlaying,
		CurrentTime:  EffectiveTime(state, now),
		Participants: s.presence.Count(code),
		Members:      s.presence.Names(code),
	})
}

// HandleRooms routes the /rooms collection: POST creates.
func (s *Server) HandleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.HandleCreateRoom(w, r)
	default:
		methodNotAllowed(w, http.MethodPost)
	}
}

// HandleRoomExists is a cheap probe clients use before dialing the socket.
func (s *Server) HandleRoomExists(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if s.hub.Exists(room) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

// HandleSearch proxies video search. The sync core never calls this; videoId
// stays an opaque string no matter where it came from.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.search == nil || !s.search.Enabled() {
		writeError(w, http.StatusServiceUnavailable, errors.New("video search is not configured"))
		return
	}
	if !s.searchLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	results, err := s.search.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// HandleRelated proxies the "related videos" lookup.
func (s *Server) HandleRelated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.search == nil || !s.search.Enabled() {
		writeError(w, http.StatusServiceUnavailable, errors.New("video search is not configured"))
		return
	}
	if !s.searchLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	videoID := strings.TrimSpace(r.URL.Query().Get("videoId"))
	if videoID == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter videoId is required"))
		return
	}
	results, err := s.search.Related(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// HandleHealth reports liveness plus a couple of cheap gauges.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       Version,
		"rooms":         s.hub.Size(),
		"occupiedRooms": s.presence.OccupiedRooms(),
		"uptime":        time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
