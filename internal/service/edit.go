package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/internal/history"
	"github.com/pixelbranch/image-edit-platform/internal/image"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
	"github.com/pixelbranch/image-edit-platform/pkg/metrics"
)

// ImageClientResolver picks the image client for a user, so per-user API
// keys can override the server default.
type ImageClientResolver interface {
	For(ctx context.Context, userID string) (image.Client, error)
}

// BlobChecker reports whether an image id exists in the object store.
type BlobChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// EditService orchestrates a single edit request end-to-end: invoke the
// external image function, persist the result, and apply the right history
// operation (append vs. fork) based on cursor position.
//
// The external call always completes before any persistence: a failed or
// slow call leaves the chat exactly as it was. Concurrent SubmitEdit calls
// on the same chat are not serialized against each other (single-user-per-
// chat assumption); two racing appends may both observe the tip.
type EditService struct {
	engine  *history.Engine
	clients ImageClientResolver
	blobs   BlobChecker
	events  EventPublisher
	logger  *logger.Logger
}

// NewEditService creates a new edit service.
func NewEditService(engine *history.Engine, clients ImageClientResolver, blobs BlobChecker, events EventPublisher, log *logger.Logger) *EditService {
	return &EditService{engine: engine, clients: clients, blobs: blobs, events: events, logger: log}
}

// SubmitEdit applies a prompt to the edit under the chat's cursor. On the
// latest edit it appends; anywhere else it forks a new chat from the cursor.
func (s *EditService) SubmitEdit(ctx context.Context, chatID, requesterID, prompt string) (*model.SubmitEditResponse, error) {
	if prompt == "" {
		return nil, apperr.Validation("prompt cannot be empty")
	}

	detail, err := s.engine.GetDetail(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}

	if !detail.IsOnLatest {
		newChatID, err := s.ForkFrom(ctx, chatID, requesterID, detail.Chat.CurrentEditIndex, prompt)
		if err != nil {
			return nil, err
		}
		return &model.SubmitEditResponse{ChatID: newChatID, IsNewChat: true}, nil
	}

	client, err := s.clients.For(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	result, err := client.Edit(ctx, detail.CurrentEdit.OutputImageID, prompt)
	if err != nil {
		return nil, err
	}

	editID, err := s.engine.AppendEdit(ctx, chatID, model.EditInput{
		UserPrompt:     prompt,
		InputImageID:   detail.CurrentEdit.OutputImageID,
		OutputImageID:  result.OutputImageID,
		AIResponseText: result.ResponseText,
	})
	if err != nil {
		return nil, err
	}

	metrics.EditsTotal.WithLabelValues("append").Inc()
	s.publish(ctx, &model.ChatEvent{
		ChatID: chatID,
		UserID: requesterID,
		Type:   model.ChatEventAppended,
	})
	s.logger.Info("edit submitted",
		zap.String("chat_id", chatID),
		zap.String("edit_id", editID),
	)

	return &model.SubmitEditResponse{ChatID: chatID, IsNewChat: false}, nil
}

// ForkFrom branches a new chat from a point in an existing chat's history,
// with one new edit applied to the image at that point. The original chat is
// never mutated.
func (s *EditService) ForkFrom(ctx context.Context, originalChatID, requesterID string, fromIndex int, prompt string) (string, error) {
	if prompt == "" {
		return "", apperr.Validation("prompt cannot be empty")
	}

	detail, err := s.engine.GetDetail(ctx, originalChatID, requesterID)
	if err != nil {
		return "", err
	}
	if fromIndex < 0 || fromIndex >= len(detail.Edits) {
		return "", apperr.Validation("fork index %d out of range [0, %d)", fromIndex, len(detail.Edits))
	}
	branchEdit := detail.Edits[fromIndex]

	client, err := s.clients.For(ctx, requesterID)
	if err != nil {
		return "", err
	}

	result, err := client.Edit(ctx, branchEdit.OutputImageID, prompt)
	if err != nil {
		return "", err
	}

	newChatID, err := s.engine.ForkFrom(ctx, originalChatID, requesterID, fromIndex, model.EditInput{
		UserPrompt:     prompt,
		InputImageID:   branchEdit.OutputImageID,
		OutputImageID:  result.OutputImageID,
		AIResponseText: result.ResponseText,
	})
	if err != nil {
		return "", err
	}

	metrics.EditsTotal.WithLabelValues("fork").Inc()
	metrics.ForksTotal.Inc()
	metrics.ChatsTotal.WithLabelValues("fork").Inc()
	s.publish(ctx, &model.ChatEvent{
		ChatID:       originalChatID,
		UserID:       requesterID,
		Type:         model.ChatEventForked,
		ForkedChatID: newChatID,
	})
	s.publish(ctx, &model.ChatEvent{
		ChatID: newChatID,
		UserID: requesterID,
		Type:   model.ChatEventCreated,
	})

	return newChatID, nil
}

// CreateFromUpload creates a chat whose first edit applies prompt to an
// uploaded image. The upload is the first edit's input; the function's
// result is its output.
func (s *EditService) CreateFromUpload(ctx context.Context, userID, imageID, prompt string) (string, error) {
	if imageID == "" {
		return "", apperr.Validation("image id cannot be empty")
	}
	if prompt == "" {
		return "", apperr.Validation("prompt cannot be empty")
	}

	// Reject dangling ids before the billable external call.
	if s.blobs != nil {
		ok, err := s.blobs.Exists(ctx, imageID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperr.NotFound("image %s not found", imageID)
		}
	}

	client, err := s.clients.For(ctx, userID)
	if err != nil {
		return "", err
	}

	result, err := client.Edit(ctx, imageID, prompt)
	if err != nil {
		return "", err
	}

	chatID, err := s.engine.CreateChat(ctx, userID, "", []model.EditInput{{
		UserPrompt:     prompt,
		InputImageID:   imageID,
		OutputImageID:  result.OutputImageID,
		AIResponseText: result.ResponseText,
	}}, 0)
	if err != nil {
		return "", err
	}

	metrics.ChatsTotal.WithLabelValues("upload").Inc()
	metrics.EditsTotal.WithLabelValues("append").Inc()
	s.publish(ctx, &model.ChatEvent{ChatID: chatID, UserID: userID, Type: model.ChatEventCreated})

	return chatID, nil
}

// CreateFromGeneration creates a chat whose first edit is a text-to-image
// generation. The generated image is its own input, since there was nothing
// to edit.
func (s *EditService) CreateFromGeneration(ctx context.Context, userID, prompt string) (string, error) {
	if prompt == "" {
		return "", apperr.Validation("prompt cannot be empty")
	}

	client, err := s.clients.For(ctx, userID)
	if err != nil {
		return "", err
	}

	result, err := client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	chatID, err := s.engine.CreateChat(ctx, userID, "", []model.EditInput{{
		UserPrompt:     prompt,
		InputImageID:   result.OutputImageID,
		OutputImageID:  result.OutputImageID,
		AIResponseText: result.ResponseText,
	}}, 0)
	if err != nil {
		return "", err
	}

	metrics.ChatsTotal.WithLabelValues("generation").Inc()
	metrics.EditsTotal.WithLabelValues("append").Inc()
	s.publish(ctx, &model.ChatEvent{ChatID: chatID, UserID: userID, Type: model.ChatEventCreated})

	return chatID, nil
}

func (s *EditService) publish(ctx context.Context, event *model.ChatEvent) {
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
