// Package history owns the edit-history model: a per-chat linear sequence of
// edits with a movable cursor, undo/redo-style navigation, and
// copy-on-branch forking.
//
// The engine provides the only legal state transitions for chats and edits
// and maintains two invariants after every operation: edit positions within a
// chat are dense ints [0, len), and 0 <= CurrentEditIndex < len whenever the
// history is non-empty. A chat with zero edits is never observable; creation
// always supplies at least one edit inside one transaction.
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/store"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// Engine maintains chat histories over the durable store.
type Engine struct {
	store  *store.Store
	logger *logger.Logger
}

// New creates a history engine.
func New(st *store.Store, log *logger.Logger) *Engine {
	return &Engine{store: st, logger: log}
}

// CreateChat atomically creates a chat and its initial edits, in order, and
// places the cursor at startIndex. Either the whole batch becomes visible or
// none of it does.
func (e *Engine) CreateChat(ctx context.Context, ownerID, title string, initial []model.EditInput, startIndex int) (string, error) {
	if len(initial) == 0 {
		return "", apperr.Validation("a chat requires at least one edit")
	}
	if startIndex < 0 || startIndex >= len(initial) {
		return "", apperr.Validation("start index %d out of range [0, %d)", startIndex, len(initial))
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultChatTitle
	}

	now := time.Now()
	chat := &model.Chat{
		ID:               uuid.Must(uuid.NewV7()).String(),
		UserID:           ownerID,
		Title:            title,
		CurrentEditIndex: startIndex,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Chats().Create(ctx, chat); err != nil {
			return err
		}
		for i, in := range initial {
			edit := newEdit(chat.ID, i, in)
			if err := tx.Edits().Create(ctx, edit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("chat created",
		zap.String("chat_id", chat.ID),
		zap.String("user_id", ownerID),
		zap.Int("edits", len(initial)),
	)

	return chat.ID, nil
}

// AppendEdit inserts a new edit at the tip of the chat's history and moves
// the cursor onto it. Appending always goes live. The caller must have
// verified that the requester owns the chat.
func (e *Engine) AppendEdit(ctx context.Context, chatID string, in model.EditInput) (string, error) {
	var editID string

	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		chat, err := tx.Chats().FindByID(ctx, chatID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("chat %s not found", chatID)
			}
			return err
		}

		edits, err := tx.Edits().ListByChat(ctx, chat.ID)
		if err != nil {
			return err
		}

		edit := newEdit(chat.ID, len(edits), in)
		if err := tx.Edits().Create(ctx, edit); err != nil {
			return err
		}
		editID = edit.ID

		return tx.Chats().UpdateCursor(ctx, chat.ID, edit.Position)
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("edit appended", zap.String("chat_id", chatID), zap.String("edit_id", editID))
	return editID, nil
}

// Navigate moves the cursor one step back or forward. Moving past either end
// is a normal, silently ignored user action: the returned index is nil and
// nothing is persisted.
func (e *Engine) Navigate(ctx context.Context, chatID, requesterID string, direction model.Direction) (*int, error) {
	if !direction.Valid() {
		return nil, apperr.Validation("unknown direction %q", direction)
	}

	chat, err := e.loadOwnedChat(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}

	edits, err := e.store.Edits().ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	newIndex := chat.CurrentEditIndex
	switch direction {
	case model.DirectionBack:
		if newIndex <= 0 {
			return nil, nil
		}
		newIndex--
	case model.DirectionForward:
		if newIndex >= len(edits)-1 {
			return nil, nil
		}
		newIndex++
	}

	if err := e.store.Chats().UpdateCursor(ctx, chat.ID, newIndex); err != nil {
		return nil, err
	}
	return &newIndex, nil
}

// GetDetail loads a chat, its ordered history, the edit under the cursor, and
// the derived navigation state. A missing edit at the cursor index is a
// data-integrity bug and is surfaced loudly rather than silently recovered.
func (e *Engine) GetDetail(ctx context.Context, chatID, requesterID string) (*model.ChatDetail, error) {
	chat, err := e.loadOwnedChat(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}

	edits, err := e.store.Edits().ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	if chat.CurrentEditIndex < 0 || chat.CurrentEditIndex >= len(edits) {
		e.logger.Error("chat cursor points at a missing edit",
			zap.String("chat_id", chat.ID),
			zap.Int("cursor", chat.CurrentEditIndex),
			zap.Int("edits", len(edits)),
		)
		return nil, apperr.NotFound("edit at index %d not found in chat %s", chat.CurrentEditIndex, chat.ID)
	}

	return &model.ChatDetail{
		Chat:        *chat,
		Edits:       edits,
		CurrentEdit: edits[chat.CurrentEditIndex],
		IsOnLatest:  chat.CurrentEditIndex == len(edits)-1,
		Position: model.Position{
			Current: chat.CurrentEditIndex + 1,
			Total:   len(edits),
		},
	}, nil
}

// ForkFrom creates a new chat whose history is a by-value copy of the
// original's edits up to and including fromIndex, plus newEdit. The new chat
// opens on its newest edit. No field of the original chat is mutated.
func (e *Engine) ForkFrom(ctx context.Context, originalChatID, requesterID string, fromIndex int, newEdit model.EditInput) (string, error) {
	detail, err := e.GetDetail(ctx, originalChatID, requesterID)
	if err != nil {
		return "", err
	}

	if fromIndex < 0 || fromIndex >= len(detail.Edits) {
		return "", apperr.Validation("fork index %d out of range [0, %d)", fromIndex, len(detail.Edits))
	}

	inputs := make([]model.EditInput, 0, fromIndex+2)
	for _, edit := range detail.Edits[:fromIndex+1] {
		inputs = append(inputs, edit.Input())
	}
	inputs = append(inputs, newEdit)

	newChatID, err := e.CreateChat(ctx, requesterID, "", inputs, len(inputs)-1)
	if err != nil {
		return "", err
	}

	e.logger.Info("chat forked",
		zap.String("original_chat_id", originalChatID),
		zap.String("new_chat_id", newChatID),
		zap.Int("from_index", fromIndex),
	)

	return newChatID, nil
}

// loadOwnedChat loads a chat and verifies the requester owns it.
func (e *Engine) loadOwnedChat(ctx context.Context, chatID, requesterID string) (*model.Chat, error) {
	chat, err := e.store.Chats().FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("chat %s not found", chatID)
		}
		return nil, err
	}
	if chat.UserID != requesterID {
		return nil, apperr.NotAuthorized("chat belongs to another user")
	}
	return chat, nil
}

func newEdit(chatID string, position int, in model.EditInput) *model.Edit {
	return &model.Edit{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ChatID:         chatID,
		Position:       position,
		UserPrompt:     in.UserPrompt,
		InputImageID:   in.InputImageID,
		OutputImageID:  in.OutputImageID,
		AIResponseText: in.AIResponseText,
		CreatedAt:      time.Now(),
	}
}
