package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
)

func TestWriteAppErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not authenticated", apperr.NotAuthenticated("no identity"), http.StatusUnauthorized},
		{"not authorized", apperr.NotAuthorized("not yours"), http.StatusForbidden},
		{"not found", apperr.NotFound("chat %s not found", "x"), http.StatusNotFound},
		{"validation", apperr.Validation("prompt cannot be empty"), http.StatusBadRequest},
		{"external service", apperr.ExternalService("provider down", nil), http.StatusBadGateway},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteAppErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, errors.New("secret connection string"))
	assert.NotContains(t, rec.Body.String(), "secret connection string")
	assert.Contains(t, rec.Body.String(), "internal error")
}
