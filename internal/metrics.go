package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	roomsCreated   atomic.Uint64
	events         atomic.Uint64
	chatMessages   atomic.Uint64
	heartbeatTicks atomic.Uint64
	searchHits     atomic.Uint64
	searchMisses   atomic.Uint64
	activeConns    atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncRoomCreated() {
	m.roomsCreated.Add(1)
}

func (m *Metrics) IncEvent() {
	m.events.Add(1)
}

func (m *Metrics) IncChat() {
	m.chatMessages.Add(1)
}

func (m *Metrics) IncHeartbeat() {
	m.heartbeatTicks.Add(1)
}

func (m *Metrics) IncSearchHit() {
	m.searchHits.Add(1)
}

func (m *Metrics) IncSearchMiss() {
	m.searchMisses.Add(1)
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"rooms_created_total":     m.roomsCreated.Load(),
		"events_dispatched_total": m.events.Load(),
		"chat_messages_total":     m.chatMessages.Load(),
		"heartbeat_ticks_total":   m.heartbeatTicks.Load(),
		"search_cache_hits_total": m.searchHits.Load(),
		"search_cache_miss_total": m.searchMisses.Load(),
		"active_connections":      m.activeConns.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
