package internal

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// tui model struct for all the components and modes
type TUIModel struct {
	textInput       textinput.Model
	messages        []ChatMessage
	serverWSURL     string
	roomCode        string
	username        string
	videoID         string
	lastSync        SyncPayload
	syncSeenAt      time.Time
	haveSync        bool
	searchResults   []SearchResult
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	joined          bool
	connectionError error
	mode            appMode
	pendingAction   actionType
}

type appMode int

const (
	modeMenu appMode = iota
	modeNamePrompt
	modeJoinPrompt
	modeWatch
)

type actionType int

const (
	actionNone actionType = iota
	actionJoin
	actionCreate
)

func NewTUIModel(serverWSURL, roomCode, username string) *TUIModel {
	input := textinput.New()
	input.Placeholder = "Message or /command…"
	input.CharLimit = 0
	input.Focus()
	input.Prompt = "> "

	if username == "" {
		username = defaultUsername()
	}

	model := &TUIModel{
		textInput:   input,
		messages:    make([]ChatMessage, 0, 64),
		serverWSURL: serverWSURL,
		roomCode:    roomCode,
		username:    username,
	}
	if roomCode == "" {
		model.mode = modeMenu
		model.textInput.Blur()
		model.textInput.Prompt = ""
		model.textInput.Placeholder = ""
	} else {
		model.mode = modeWatch
	}
	return model
}

// init user
func defaultUsername() string {
	if user := os.Getenv("TOGETHER_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *TUIModel) Init() tea.Cmd {
	if model.mode == modeWatch {
		return tea.Batch(model.connectCmd(), model.playheadTickCmd())
	}
	return nil
}

// localPlayhead extrapolates the shared play head from the last sync payload,
// the same way the server's sync clock does, so the display advances between
// updates without any network chatter.
func (model *TUIModel) localPlayhead(now time.Time) float64 {
	if !model.haveSync {
		return 0
	}
	if !model.lastSync.IsPlaying {
		return model.lastSync.CurrentTime
	}
	return model.lastSync.CurrentTime + now.Sub(model.syncSeenAt).Seconds()
}

// applySync records a fresh authoritative playback snapshot.
func (model *TUIModel) applySync(payload SyncPayload) {
	model.lastSync = payload
	model.syncSeenAt = time.Now()
	model.haveSync = true
}

func (model *TUIModel) hasChatID(id string) bool {
	if id == "" {
		return false
	}
	for _, msg := range model.messages {
		if msg.ID == id {
			return true
		}
	}
	return false
}

func (model *TUIModel) addSystemLine(text string) {
	model.messages = append(model.messages, ChatMessage{
		Username: "system",
		Text:     text,
		At:       time.Now().UnixMilli(),
	})
}
