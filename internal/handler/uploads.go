package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/blob"
	"github.com/pixelbranch/image-edit-platform/internal/middleware"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// maxUploadBytes caps a single image upload.
const maxUploadBytes = 20 << 20

// UploadHandler moves image bytes in and out of the object store via signed
// URLs. These are the only endpoints that see raw image data.
type UploadHandler struct {
	blobs  *blob.Store
	signer *blob.Signer
	logger *logger.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(blobs *blob.Store, signer *blob.Signer, log *logger.Logger) *UploadHandler {
	return &UploadHandler{blobs: blobs, signer: signer, logger: log}
}

// CreateUploadURL handles POST /api/v1/uploads
func (h *UploadHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	url, imageID := h.signer.UploadURL()
	writeJSON(w, http.StatusCreated, map[string]string{
		"upload_url": url,
		"image_id":   imageID,
	})
}

// Upload handles PUT /uploads/:id (signed, unauthenticated)
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "id")
	q := r.URL.Query()

	if !h.signer.Verify(blob.PurposeUpload, imageID, q.Get("exp"), q.Get("sig")) {
		writeError(w, http.StatusForbidden, "invalid or expired upload URL")
		return
	}

	if err := middleware.ValidateImageID(imageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload body")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if err := h.blobs.PutWithID(r.Context(), imageID, data, contentType); err != nil {
		h.logger.Error("failed to store upload", zap.String("image_id", imageID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"image_id": imageID})
}

// Serve handles GET /images/:id (signed, unauthenticated)
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "id")
	q := r.URL.Query()

	if !h.signer.Verify(blob.PurposeServe, imageID, q.Get("exp"), q.Get("sig")) {
		writeError(w, http.StatusForbidden, "invalid or expired image URL")
		return
	}

	data, contentType, err := h.blobs.Get(r.Context(), imageID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
