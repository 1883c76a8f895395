// Package secrets provides envelope encryption for per-user provider API
// keys: AES-256-GCM keyed by the SHA-256 digest of a server-held secret,
// with a random nonce stored beside each ciphertext.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Box encrypts and decrypts small secrets under a derived key.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives the AEAD key from the server secret.
func NewBox(serverSecret string) (*Box, error) {
	if serverSecret == "" {
		return nil, errors.New("encryption secret is required")
	}

	key := sha256.Sum256([]byte(serverSecret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create AEAD: %w", err)
	}

	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and returns the ciphertext and the nonce used.
func (b *Box) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return b.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts ciphertext with its nonce.
func (b *Box) Open(ciphertext, nonce []byte) ([]byte, error) {
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
