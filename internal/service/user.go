package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/internal/secrets"
	"github.com/pixelbranch/image-edit-platform/internal/store"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
)

// UserService handles user records and encrypted provider API keys.
type UserService struct {
	store  *store.Store
	box    *secrets.Box
	logger *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(st *store.Store, box *secrets.Box, log *logger.Logger) *UserService {
	return &UserService{store: st, box: box, logger: log}
}

// StoreAPIKey encrypts and stores a provider API key for the user, creating
// the user row on first contact.
func (s *UserService) StoreAPIKey(ctx context.Context, userID, apiKey string) error {
	if apiKey == "" {
		return apperr.Validation("api key cannot be empty")
	}
	if s.box == nil {
		return apperr.Validation("api key storage is not configured on this server")
	}

	ciphertext, nonce, err := s.box.Seal([]byte(apiKey))
	if err != nil {
		return err
	}

	err = s.store.Users().SetAPIKey(ctx, userID, ciphertext, nonce)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now()
		if err := s.store.Users().Upsert(ctx, &model.User{
			ID:        userID,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		err = s.store.Users().SetAPIKey(ctx, userID, ciphertext, nonce)
	}
	return err
}

// GetAPIKey returns the user's decrypted API key, or "" when none is stored.
func (s *UserService) GetAPIKey(ctx context.Context, userID string) (string, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if len(user.EncryptedAPIKey) == 0 {
		return "", nil
	}
	if s.box == nil {
		return "", nil
	}

	plaintext, err := s.box.Open(user.EncryptedAPIKey, user.APIKeyNonce)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
