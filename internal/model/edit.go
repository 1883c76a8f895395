package model

import (
	"time"
)

// Edit is one prompt-to-image transformation step. Edits are immutable once
// written and exclusively owned by their chat; forking copies edit content
// into new rows rather than sharing references across chats.
//
// Position is the edit's index within its chat's history. The engine keeps
// positions dense: [0, len) with no gaps.
type Edit struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	ChatID         string    `json:"chat_id" gorm:"index:idx_edits_chat"`
	Position       int       `json:"position" gorm:"index:idx_edits_chat"`
	UserPrompt     string    `json:"user_prompt"`
	InputImageID   string    `json:"input_image_id"`
	OutputImageID  string    `json:"output_image_id"`
	AIResponseText string    `json:"ai_response_text"`
	CreatedAt      time.Time `json:"created_at"`

	// Signed serving URLs, minted per response. Not persisted.
	InputImageURL  string `json:"input_image_url,omitempty" gorm:"-"`
	OutputImageURL string `json:"output_image_url,omitempty" gorm:"-"`
}

// EditInput is the content of an edit before it has an identity.
type EditInput struct {
	UserPrompt     string
	InputImageID   string
	OutputImageID  string
	AIResponseText string
}

// Input returns the edit's content stripped of identity, for copying into a
// forked chat.
func (e Edit) Input() EditInput {
	return EditInput{
		UserPrompt:     e.UserPrompt,
		InputImageID:   e.InputImageID,
		OutputImageID:  e.OutputImageID,
		AIResponseText: e.AIResponseText,
	}
}
