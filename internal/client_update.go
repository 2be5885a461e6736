package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// async events feeding the update loop
type (
	connectedMsg     struct{}
	incomingMsg      Envelope
	errorMsg         error
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	existsMsg        struct {
		code   string
		exists bool
		err    error
	}
	roomCreatedMsg struct {
		code    string
		videoID string
		err     error
	}
	searchResultsMsg struct {
		results []SearchResult
		err     error
	}
	playheadTickMsg time.Time
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		// Ctrl+C bails out from anywhere.
		if typedMessage.Type == tea.KeyCtrlC {
			model.closeConn("")
			return model, tea.Quit
		}
		switch model.mode {
		case modeMenu:
			switch typedMessage.String() {
			case "1", "j", "J":
				model.pendingAction = actionJoin
				return model, model.enterNamePrompt()
			case "2", "c", "C":
				model.pendingAction = actionCreate
				return model, model.enterNamePrompt()
			case "q", "Q", "3", "esc":
				return model, tea.Quit
			}
			return model, nil
		case modeNamePrompt:
			switch typedMessage.Type {
			case tea.KeyEnter:
				trimmed := strings.TrimSpace(model.textInput.Value())
				if trimmed == "" {
					model.addSystemLine("Display name cannot be empty.")
					return model, nil
				}
				model.username = trimmed
				model.textInput.SetValue("")
				nextAction := model.pendingAction
				model.pendingAction = actionNone
				switch nextAction {
				case actionJoin:
					model.mode = modeJoinPrompt
					model.textInput.Placeholder = "Enter room code…"
					model.textInput.Prompt = "room> "
					focusCmd := model.textInput.Focus()
					return model, focusCmd
				case actionCreate:
					model.addSystemLine("Creating a room…")
					return model, model.createRoomCmd("")
				default:
					return model, model.backToMenu()
				}
			case tea.KeyEsc:
				model.pendingAction = actionNone
				return model, model.backToMenu()
			default:
				var cmd tea.Cmd
				model.textInput, cmd = model.textInput.Update(typedMessage)
				return model, cmd
			}
		case modeJoinPrompt:
			if typedMessage.Type == tea.KeyEsc {
				return model, model.backToMenu()
			}
			if typedMessage.Type == tea.KeyEnter {
				code := strings.ToUpper(strings.TrimSpace(model.textInput.Value()))
				if code == "" {
					return model, nil
				}
				if !ValidRoomCode(code) {
					model.addSystemLine("Room codes are 6 characters (letters and digits, no 0/O/1/I).")
					return model, nil
				}
				// Probe over HTTP before dialing the socket.
				return model, model.existsCmd(code)
			}
			var cmd tea.Cmd
			model.textInput, cmd = model.textInput.Update(typedMessage)
			return model, cmd
		case modeWatch:
			if typedMessage.Type == tea.KeyEnter {
				trimmed := strings.TrimSpace(model.textInput.Value())
				if strings.HasPrefix(trimmed, "/") {
					return model.handleCommand(trimmed)
				}
				if trimmed != "" && model.joined {
					model.textInput.SetValue("")
					return model, model.sendEventCmd(EventChatMessage, chatMessageData{Text: trimmed})
				}
				return model, nil
			}
			var command tea.Cmd
			model.textInput, command = model.textInput.Update(typedMessage)
			return model, command
		}

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		join := joinRoomData{RoomCode: model.roomCode, Username: model.username}
		return model, tea.Batch(
			model.sendEventCmd(EventJoinRoom, join),
			model.readOnceCmd(),
		)

	case incomingMsg:
		cmd := model.handleIncoming(Envelope(typedMessage))
		if model.websocketConn == nil {
			return model, cmd
		}
		return model, tea.Batch(cmd, model.readOnceCmd())

	case errorMsg:
		model.connectionError = typedMessage
		model.isConnected = false
		model.joined = false
		model.websocketConn = nil
		if model.mode == modeWatch {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		if model.mode == modeWatch {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case reconnectMsg:
		if model.mode == modeWatch && !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil

	case existsMsg:
		if typedMessage.err != nil {
			model.addSystemLine(fmt.Sprintf("Error checking room: %v", typedMessage.err))
			return model, nil
		}
		if !typedMessage.exists {
			model.addSystemLine("Room not found. Check the code or create a room.")
			return model, nil
		}
		model.roomCode = typedMessage.code
		return model, model.enterWatchMode()

	case roomCreatedMsg:
		if typedMessage.err != nil {
			model.addSystemLine(fmt.Sprintf("Could not create a room: %v", typedMessage.err))
			model.mode = modeMenu
			return model, nil
		}
		model.roomCode = typedMessage.code
		model.videoID = typedMessage.videoID
		model.addSystemLine(inviteText(model.roomCode))
		return model, model.enterWatchMode()

	case searchResultsMsg:
		if typedMessage.err != nil {
			model.addSystemLine(fmt.Sprintf("Search failed: %v", typedMessage.err))
			return model, nil
		}
		model.searchResults = typedMessage.results
		if len(typedMessage.results) == 0 {
			model.addSystemLine("No results.")
			return model, nil
		}
		for i, result := range typedMessage.results {
			model.addSystemLine(fmt.Sprintf("%d. %s - %s (%s)", i+1, result.Title, result.Channel, result.VideoID))
		}
		model.addSystemLine("Use /video <id> (or /video <number>) to switch the room.")
		return model, nil

	case playheadTickMsg:
		if model.mode == modeWatch {
			return model, model.playheadTickCmd()
		}
		return model, nil
	}
	return model, nil
}

// handleCommand interprets the /slash commands in watch mode.
func (model *TUIModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	model.textInput.SetValue("")
	fields := strings.Fields(input)
	command := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch command {
	case "/quit", "/exit":
		model.closeConn("client quit")
		return model, tea.Quit
	case "/play":
		seconds := model.localPlayhead(time.Now())
		if arg != "" {
			if parsed, err := strconv.ParseFloat(arg, 64); err == nil {
				seconds = parsed
			}
		}
		model.applySync(SyncPayload{IsPlaying: true, CurrentTime: seconds, ServerNow: time.Now().UnixMilli()})
		return model, model.sendEventCmd(EventSyncPlay, map[string]any{"currentTime": seconds})
	case "/pause":
		seconds := model.localPlayhead(time.Now())
		model.applySync(SyncPayload{IsPlaying: false, CurrentTime: seconds, ServerNow: time.Now().UnixMilli()})
		return model, model.sendEventCmd(EventSyncPause, map[string]any{"currentTime": seconds})
	case "/seek":
		parsed, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			model.addSystemLine("Usage: /seek <seconds>")
			return model, nil
		}
		playing := model.lastSync.IsPlaying
		model.applySync(SyncPayload{IsPlaying: playing, CurrentTime: parsed, ServerNow: time.Now().UnixMilli()})
		return model, model.sendEventCmd(EventSyncSeek, map[string]any{"currentTime": parsed})
	case "/video":
		if arg == "" {
			model.addSystemLine("Usage: /video <videoId|result number>")
			return model, nil
		}
		videoID := arg
		if index, err := strconv.Atoi(arg); err == nil && index >= 1 && index <= len(model.searchResults) {
			videoID = model.searchResults[index-1].VideoID
		}
		return model, model.sendEventCmd(EventSetVideo, setVideoData{VideoID: videoID})
	case "/search":
		if arg == "" {
			model.addSystemLine("Usage: /search <query>")
			return model, nil
		}
		return model, model.searchCmd(arg)
	default:
		model.addSystemLine("Commands: /play [s], /pause, /seek <s>, /video <id>, /search <q>, /quit")
		return model, nil
	}
}

// handleIncoming folds one server envelope into the model.
func (model *TUIModel) handleIncoming(env Envelope) tea.Cmd {
	switch env.Event {
	case EventRoomState:
		var state RoomStatePayload
		if err := json.Unmarshal(env.Data, &state); err != nil {
			return nil
		}
		model.joined = true
		model.videoID = state.VideoID
		model.applySync(SyncPayload{
			IsPlaying:   state.IsPlaying,
			CurrentTime: state.CurrentTime,
			ServerNow:   state.ServerNow,
		})
		for _, msg := range state.Chat {
			// Reconnects replay the backlog; keep only what we haven't seen.
			if !model.hasChatID(msg.ID) {
				model.messages = append(model.messages, msg)
			}
		}
	case EventSyncState, EventSyncPlay, EventSyncPause, EventSyncSeek:
		var payload SyncPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil
		}
		model.applySync(payload)
	case EventVideoChanged:
		var payload VideoChangedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil
		}
		model.videoID = payload.VideoID
		model.haveSync = true
		model.lastSync = SyncPayload{IsPlaying: false, CurrentTime: 0, ServerNow: payload.At}
		model.syncSeenAt = time.Now()
		model.addSystemLine(fmt.Sprintf("%s changed the video to %s", payload.By, payload.VideoID))
	case EventChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil
		}
		model.messages = append(model.messages, msg)
	case EventSystemMessage:
		var payload SystemMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil
		}
		model.messages = append(model.messages, ChatMessage{Username: "system", Text: payload.Text, At: payload.At})
	case EventJoinError:
		var payload JoinErrorPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil
		}
		model.addSystemLine("Join failed: " + payload.Message)
		model.closeConn("join rejected")
		model.joined = false
		model.isConnected = false
		model.mode = modeMenu
	}
	return nil
}

func (model *TUIModel) enterNamePrompt() tea.Cmd {
	model.mode = modeNamePrompt
	model.textInput.SetValue(model.username)
	model.textInput.Placeholder = "Enter display name…"
	model.textInput.Prompt = "name> "
	return model.textInput.Focus()
}

func (model *TUIModel) enterWatchMode() tea.Cmd {
	model.mode = modeWatch
	model.textInput.SetValue("")
	model.textInput.Placeholder = "Message or /command…"
	model.textInput.Prompt = "> "
	focusCmd := model.textInput.Focus()
	return tea.Batch(focusCmd, model.connectCmd(), model.playheadTickCmd())
}

func (model *TUIModel) backToMenu() tea.Cmd {
	model.mode = modeMenu
	model.textInput.SetValue("")
	model.textInput.Blur()
	model.textInput.Placeholder = ""
	model.textInput.Prompt = ""
	return nil
}

func (model *TUIModel) closeConn(reason string) {
	if model.websocketConn == nil {
		return
	}
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	_ = model.websocketConn.Close()
	model.websocketConn = nil
}
