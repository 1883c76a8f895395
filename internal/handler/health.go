package handler

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/blob"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *blob.Client
	db         *gorm.DB
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(natsClient *blob.Client, db *gorm.DB) *HealthHandler {
	return &HealthHandler{natsClient: natsClient, db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient == nil || !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
