// Package service provides business logic for the image edit platform.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/internal/history"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/store"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// EventPublisher pushes chat change notifications to subscribers. Event
// delivery is best-effort: a failed publish never fails the mutation that
// triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.ChatEvent) (uint64, error)
}

// ImageURLSigner mints short-lived signed serving URLs for stored images.
// Clients can only reach image bytes through these; raw ids are opaque.
type ImageURLSigner interface {
	ServeURL(imageID string) string
}

// MaxTitleLength bounds user-supplied chat titles.
const MaxTitleLength = 256

// ChatService handles chat listing, detail, navigation, and titles.
type ChatService struct {
	engine *history.Engine
	store  *store.Store
	events EventPublisher
	urls   ImageURLSigner
	logger *logger.Logger
}

// NewChatService creates a new chat service.
func NewChatService(engine *history.Engine, st *store.Store, events EventPublisher, urls ImageURLSigner, log *logger.Logger) *ChatService {
	return &ChatService{engine: engine, store: st, events: events, urls: urls, logger: log}
}

// List returns the requester's chats, newest first.
func (s *ChatService) List(ctx context.Context, userID string) (*model.ListChatsResponse, error) {
	chats, err := s.store.Chats().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(chats))
	for i, chat := range chats {
		ids[i] = chat.ID
	}
	counts, err := s.store.Edits().CountByChats(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ChatSummary, len(chats))
	for i, chat := range chats {
		summaries[i] = model.ChatSummary{
			ID:               chat.ID,
			Title:            chat.Title,
			EditCount:        counts[chat.ID],
			CurrentEditIndex: chat.CurrentEditIndex,
			CreatedAt:        chat.CreatedAt,
		}
	}

	return &model.ListChatsResponse{Chats: summaries}, nil
}

// GetDetail returns the full chat view for its owner, with signed serving
// URLs attached to every edit's images.
func (s *ChatService) GetDetail(ctx context.Context, chatID, requesterID string) (*model.ChatDetail, error) {
	detail, err := s.engine.GetDetail(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}
	s.signImageURLs(detail)
	return detail, nil
}

func (s *ChatService) signImageURLs(detail *model.ChatDetail) {
	if s.urls == nil {
		return
	}
	for i := range detail.Edits {
		detail.Edits[i].InputImageURL = s.urls.ServeURL(detail.Edits[i].InputImageID)
		detail.Edits[i].OutputImageURL = s.urls.ServeURL(detail.Edits[i].OutputImageID)
	}
	detail.CurrentEdit = detail.Edits[detail.Chat.CurrentEditIndex]
}

// Navigate moves the cursor back or forward. A nil index means the cursor
// was already at that end; this is not an error.
func (s *ChatService) Navigate(ctx context.Context, chatID, requesterID string, direction model.Direction) (*int, error) {
	index, err := s.engine.Navigate(ctx, chatID, requesterID, direction)
	if err != nil {
		return nil, err
	}
	if index != nil {
		s.publish(ctx, &model.ChatEvent{
			ChatID: chatID,
			UserID: requesterID,
			Type:   model.ChatEventNavigated,
		})
	}
	return index, nil
}

// UpdateTitle renames a chat. The title is trimmed; an empty result is a
// validation error.
func (s *ChatService) UpdateTitle(ctx context.Context, chatID, requesterID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("title cannot be empty")
	}
	if len(title) > MaxTitleLength {
		return apperr.Validation("title exceeds %d characters", MaxTitleLength)
	}

	chat, err := s.store.Chats().FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("chat %s not found", chatID)
		}
		return err
	}
	if chat.UserID != requesterID {
		return apperr.NotAuthorized("chat belongs to another user")
	}

	if err := s.store.Chats().UpdateTitle(ctx, chatID, title); err != nil {
		return err
	}

	s.publish(ctx, &model.ChatEvent{
		ChatID: chatID,
		UserID: requesterID,
		Type:   model.ChatEventRetitled,
	})
	return nil
}

func (s *ChatService) publish(ctx context.Context, event *model.ChatEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish chat event",
			zap.String("chat_id", event.ChatID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
