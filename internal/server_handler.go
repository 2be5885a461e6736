package internal

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and starts the connection pumps. The client
// attaches to a room only after a successful join-room event; until then the
// connection is a no-op target for everything else.
func (s *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	websocketConn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}
	client := newClient(s, websocketConn)
	s.metrics.IncConn()

	go client.writePump()
	go client.readPump()
}
