// Package handler provides HTTP handlers for the API.
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

// ChatHandler handles chat endpoints.
type ChatHandler struct {
	chats  *service.ChatService
	edits  *service.EditService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chats *service.ChatService, edits *service.EditService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, edits: edits, logger: log}
}

// CreateFromUpload handles POST /api/v1/chats/from-upload
func (h *ChatHandler) CreateFromUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateFromUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateImageID(req.ImageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chatID, err := h.edits.CreateFromUpload(ctx, userID, req.ImageID, req.Prompt)
	if err != nil {
		h.logger.Error("failed to create chat from upload", zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateChatResponse{ChatID: chatID})
}

// CreateFromGeneration handles POST /api/v1/chats/from-generation
func (h *ChatHandler) CreateFromGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateFromGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chatID, err := h.edits.CreateFromGeneration(ctx, userID, req.Prompt)
	if err != nil {
		h.logger.Error("failed to create chat from generation", zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateChatResponse{ChatID: chatID})
}

// List handles GET /api/v1/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	resp, err := h.chats.List(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/chats/:id
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.chats.GetDetail(ctx, chatID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// UpdateTitle handles PUT /api/v1/chats/:id/title
func (h *ChatHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.chats.UpdateTitle(ctx, chatID, userID, req.Title); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Navigate handles POST /api/v1/chats/:id/navigate
func (h *ChatHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	index, err := h.chats.Navigate(ctx, chatID, userID, req.Direction)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.NavigateResponse{Index: index})
}
