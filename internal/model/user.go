package model

import (
	"time"
)

// User holds account data that is not derivable from the auth token. The
// provider API key is stored as AEAD ciphertext alongside its nonce; raw keys
// never touch the database.
type User struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	Email             string    `json:"email" gorm:"index"`
	EncryptedAPIKey   []byte    `json:"-"`
	APIKeyNonce       []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StoreAPIKeyRequest stores a provider API key for the current user.
type StoreAPIKeyRequest struct {
	APIKey string `json:"api_key"`
}
