package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/events"
	"github.com/pixelbranch/image-edit-platform/internal/middleware"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/service"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// longPollWait is how long a poll holds open waiting for the first event.
const longPollWait = 25 * time.Second

// EventsHandler exposes chat change notifications as a long-poll endpoint.
// Each request is one explicit subscription with a bounded lifetime; clients
// re-fetch the chat detail when events arrive.
type EventsHandler struct {
	broker *events.Broker
	chats  *service.ChatService
	logger *logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(broker *events.Broker, chats *service.ChatService, log *logger.Logger) *EventsHandler {
	return &EventsHandler{broker: broker, chats: chats, logger: log}
}

// Poll handles GET /api/v1/chats/:id/events
func (h *EventsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Ownership check before exposing the event feed.
	if _, err := h.chats.GetDetail(ctx, chatID, userID); err != nil {
		writeAppError(w, err)
		return
	}

	sub, err := h.broker.Subscribe(ctx, userID, chatID, longPollWait)
	if err != nil {
		h.logger.Error("failed to subscribe", zap.String("chat_id", chatID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer sub.Cancel()

	var received []model.ChatEvent

	timer := time.NewTimer(longPollWait)
	defer timer.Stop()

	select {
	case event, ok := <-sub.C():
		if ok {
			received = append(received, event)
			// Drain anything else already buffered.
			for {
				select {
				case e, more := <-sub.C():
					if !more {
						goto respond
					}
					received = append(received, e)
				default:
					goto respond
				}
			}
		}
	case <-timer.C:
	case <-ctx.Done():
	}

respond:
	writeJSON(w, http.StatusOK, map[string]any{"events": received})
}
