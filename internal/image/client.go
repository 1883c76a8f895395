// Package image provides clients for the external image edit/generation
// function. Both operations are at-least-once, non-idempotent, billable
// calls; callers must not mutate persisted state until a call has succeeded.
package image

import (
	"context"
)

// Result is the outcome of an edit or generation call: the stored output
// image and the model's explanatory text.
type Result struct {
	OutputImageID string
	ResponseText  string
}

// BlobStore is the slice of the object store the image clients need. Images
// cross this interface as opaque ids, never as raw bytes.
type BlobStore interface {
	Get(ctx context.Context, id string) (data []byte, contentType string, err error)
	Put(ctx context.Context, data []byte, contentType string) (id string, err error)
}

// Client is the interface for image providers.
type Client interface {
	// Edit applies a prompt to an existing image and stores the result.
	Edit(ctx context.Context, inputImageID, prompt string) (*Result, error)

	// Generate creates an image from a prompt alone and stores the result.
	Generate(ctx context.Context, prompt string) (*Result, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of image provider.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// NewClient creates a new image client based on provider.
func NewClient(ctx context.Context, provider Provider, apiKey string, blobs BlobStore) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, blobs)
	default:
		return NewGeminiClient(ctx, apiKey, blobs)
	}
}
