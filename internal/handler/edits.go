package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/middleware"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/service"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// EditHandler handles edit submission and explicit forking.
type EditHandler struct {
	edits  *service.EditService
	logger *logger.Logger
}

// NewEditHandler creates a new edit handler.
func NewEditHandler(edits *service.EditService, log *logger.Logger) *EditHandler {
	return &EditHandler{edits: edits, logger: log}
}

// Add handles POST /api/v1/chats/:id/edits
//
// On the latest edit this appends to the chat; from an earlier point it
// forks, and the response carries the new chat's id with is_new_chat set.
func (h *EditHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.AddEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.edits.SubmitEdit(ctx, chatID, userID, req.Prompt)
	if err != nil {
		h.logger.WithContext(middleware.GetCorrelationID(ctx), userID).
			Error("failed to submit edit", zap.String("chat_id", chatID), zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Fork handles POST /api/v1/chats/:id/fork
func (h *EditHandler) Fork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ForkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	newChatID, err := h.edits.ForkFrom(ctx, chatID, userID, req.FromIndex, req.Prompt)
	if err != nil {
		h.logger.WithContext(middleware.GetCorrelationID(ctx), userID).
			Error("failed to fork chat", zap.String("chat_id", chatID), zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateChatResponse{ChatID: newChatID})
}
