// Package model defines data structures for the image edit platform.
package model

import (
	"time"
)

// DefaultChatTitle is used when no title is supplied at creation time.
const DefaultChatTitle = "Untitled"

// Chat is a linear, navigable sequence of image edits owned by one user.
// Branches are never represented inside a chat; editing from a non-latest
// point creates a new chat whose history is a copied prefix.
type Chat struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"index:idx_chats_user"`
	Title            string    `json:"title"`
	CurrentEditIndex int       `json:"current_edit_index"`
	CreatedAt        time.Time `json:"created_at" gorm:"index:idx_chats_user,sort:desc"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChatSummary is what the chat list renders.
type ChatSummary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	EditCount        int       `json:"edit_count"`
	CurrentEditIndex int       `json:"current_edit_index"`
	CreatedAt        time.Time `json:"created_at"`
}

// Position locates the cursor within a chat's history, 1-based for display.
type Position struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ChatDetail is the full view of a chat: the record, its ordered history,
// the edit under the cursor, and derived navigation state.
type ChatDetail struct {
	Chat        Chat     `json:"chat"`
	Edits       []Edit   `json:"edits"`
	CurrentEdit Edit     `json:"current_edit"`
	IsOnLatest  bool     `json:"is_on_latest"`
	Position    Position `json:"position"`
}

// Direction selects which way to move the cursor.
type Direction string

const (
	DirectionBack    Direction = "back"
	DirectionForward Direction = "forward"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionBack || d == DirectionForward
}

// CreateFromUploadRequest creates a chat from an uploaded image plus a first
// edit prompt.
type CreateFromUploadRequest struct {
	ImageID string `json:"image_id"`
	Prompt  string `json:"prompt"`
}

// CreateFromGenerationRequest creates a chat from a text-to-image prompt.
type CreateFromGenerationRequest struct {
	Prompt string `json:"prompt"`
}

// AddEditRequest adds an edit to an existing chat.
type AddEditRequest struct {
	Prompt string `json:"prompt"`
}

// ForkRequest branches a new chat from a point in an existing chat's history.
type ForkRequest struct {
	FromIndex int    `json:"from_index"`
	Prompt    string `json:"prompt"`
}

// NavigateRequest moves the cursor within a chat.
type NavigateRequest struct {
	Direction Direction `json:"direction"`
}

// NavigateResponse carries the new cursor index, or null when the cursor
// could not move (already at an end).
type NavigateResponse struct {
	Index *int `json:"index"`
}

// UpdateTitleRequest renames a chat.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// CreateChatResponse is returned by both chat creation entry points.
type CreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

// SubmitEditResponse reports where an edit landed: the same chat (append) or
// a freshly forked one.
type SubmitEditResponse struct {
	ChatID    string `json:"chat_id"`
	IsNewChat bool   `json:"is_new_chat"`
}

// ListChatsResponse is the response for listing a user's chats.
type ListChatsResponse struct {
	Chats []ChatSummary `json:"chats"`
}
