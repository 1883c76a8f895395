package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/pixelbranch/image-edit-platform/internal/image"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// ImageClients resolves the image client for a user: a stored per-user
// Gemini key overrides the server default client.
type ImageClients struct {
	defaultClient image.Client
	users         *UserService
	blobs         image.BlobStore
	logger        *logger.Logger
}

// NewImageClients creates an image client resolver.
func NewImageClients(defaultClient image.Client, users *UserService, blobs image.BlobStore, log *logger.Logger) *ImageClients {
	return &ImageClients{defaultClient: defaultClient, users: users, blobs: blobs, logger: log}
}

// For returns the image client to use for a user.
func (c *ImageClients) For(ctx context.Context, userID string) (image.Client, error) {
	key, err := c.users.GetAPIKey(ctx, userID)
	if err != nil {
		// A corrupt stored key should not block editing entirely.
		c.logger.Warn("failed to load user api key, using default client",
			zap.String("user_id", userID), zap.Error(err))
		return c.defaultClient, nil
	}
	if key == "" {
		return c.defaultClient, nil
	}

	client, err := image.NewGeminiClient(ctx, key, c.blobs)
	if err != nil {
		return nil, err
	}
	return client, nil
}
