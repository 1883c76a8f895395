package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/middleware"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/service"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// UserHandler handles user endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: log}
}

// StoreAPIKey handles PUT /api/v1/users/me/api-key
func (h *UserHandler) StoreAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.StoreAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.StoreAPIKey(ctx, userID, req.APIKey); err != nil {
		h.logger.Error("failed to store api key", zap.String("user_id", userID), zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
