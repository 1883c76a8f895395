package model

import (
	"time"
)

// ChatEventType classifies a chat change notification.
type ChatEventType string

const (
	ChatEventCreated   ChatEventType = "created"
	ChatEventAppended  ChatEventType = "appended"
	ChatEventForked    ChatEventType = "forked"
	ChatEventNavigated ChatEventType = "navigated"
	ChatEventRetitled  ChatEventType = "retitled"
)

// ChatEvent notifies subscribers that a chat changed. Clients re-fetch the
// chat detail on receipt; events carry identifiers, not state.
type ChatEvent struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	UserID    string        `json:"user_id"`
	Type      ChatEventType `json:"type"`
	// ForkedChatID is set on forked events: the id of the newly created chat.
	ForkedChatID string    `json:"forked_chat_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Sequence     uint64    `json:"sequence,omitempty"`
}
