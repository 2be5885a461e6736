package internal

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxChatHistory = 200
	maxChatTextLen = 500
	joinChatTail   = 50
)

// ChatMessage is immutable once created; At is unix millis.
type ChatMessage struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Text     string `json:"text"`
	At       int64  `json:"at"`
}

// newChatMessage trims and caps the text and stamps a generation-ordered id.
// The random suffix disambiguates messages created on the same millisecond
// that may arrive out of order on slow clients.
func newChatMessage(username, text string, now time.Time) ChatMessage {
	text = strings.TrimSpace(text)
	if len(text) > maxChatTextLen {
		// Cut on a rune boundary so capped text stays valid UTF-8.
		cut := maxChatTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return ChatMessage{
		ID:       fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(suffix)),
		Username: username,
		Text:     text,
		At:       now.UnixMilli(),
	}
}

// appendChat keeps the log bounded at maxChatHistory, evicting oldest first.
func appendChat(log []ChatMessage, msg ChatMessage) []ChatMessage {
	log = append(log, msg)
	if overflow := len(log) - maxChatHistory; overflow > 0 {
		log = append(log[:0], log[overflow:]...)
	}
	return log
}

// chatTail returns a copy of the most recent n messages in original order.
func chatTail(log []ChatMessage, n int) []ChatMessage {
	if len(log) > n {
		log = log[len(log)-n:]
	}
	tail := make([]ChatMessage, len(log))
	copy(tail, log)
	return tail
}
