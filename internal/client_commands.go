package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	// schedule a future poke that nudges Update to try the connection again
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// playheadTickCmd keeps the rendered play head advancing once a second while
// in watch mode, without touching the network.
func (model *TUIModel) playheadTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(at time.Time) tea.Msg {
		return playheadTickMsg(at)
	})
}

// websocket dial
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		wsURL, err := buildWSURL(model.serverWSURL)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

// sendEventCmd marshals one envelope and writes it to the socket.
func (model *TUIModel) sendEventCmd(event string, data any) tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return errorMsg(err)
		}
		encoded, err := json.Marshal(Envelope{Event: event, Data: raw})
		if err != nil {
			return errorMsg(err)
		}
		model.writeMutex.Lock()
		err = model.websocketConn.WriteMessage(websocket.TextMessage, encoded)
		model.writeMutex.Unlock()
		if err != nil {
			return errorMsg(err)
		}
		return nil
	}
}

// readOnceCmd blocks on the next server frame and hands it to Update.
func (model *TUIModel) readOnceCmd() tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		messageType, payload, err := model.websocketConn.ReadMessage()
		if err != nil {
			return errorMsg(err)
		}
		if messageType != websocket.TextMessage {
			return incomingMsg(Envelope{})
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return incomingMsg(Envelope{})
		}
		return incomingMsg(env)
	}
}

// HTTP probe against /exists so we can warn before dialing the socket.
func (model *TUIModel) existsCmd(code string) tea.Cmd {
	return func() tea.Msg {
		exists, err := apiRoomExists(model.serverWSURL, code)
		return existsMsg{code: code, exists: exists, err: err}
	}
}

func (model *TUIModel) createRoomCmd(videoID string) tea.Cmd {
	return func() tea.Msg {
		resp, err := apiCreateRoom(model.serverWSURL, videoID)
		if err != nil {
			return roomCreatedMsg{err: err}
		}
		return roomCreatedMsg{code: resp.RoomCode, videoID: resp.VideoID}
	}
}

func (model *TUIModel) searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := apiSearch(model.serverWSURL, query)
		return searchResultsMsg{results: results, err: err}
	}
}

// entry for bubbletea
func RunClient(serverWSURL, roomCode, username string) error {
	program := tea.NewProgram(NewTUIModel(serverWSURL, roomCode, username))
	_, err := program.Run()
	return err
}

func buildWSURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	if parsed.Path == "" {
		parsed.Path = "/ws"
	}
	return parsed.String(), nil
}

func inviteText(roomCode string) string {
	return fmt.Sprintf("Room created. Share the code with friends:\n  %s\nThey can join with: go run ./cmd/client --user <name> %s", roomCode, roomCode)
}
