package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/pkg/metrics"
)

// OpenAIClient edits and generates images through the OpenAI Images API.
type OpenAIClient struct {
	client *openai.Client
	blobs  BlobStore
}

// NewOpenAIClient creates a new OpenAI image client.
func NewOpenAIClient(apiKey string, blobs BlobStore) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), blobs: blobs}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Generate creates an image from the prompt and stores it.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (*Result, error) {
	start := time.Now()

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		metrics.RecordImageCall(c.Name(), "generate", "error", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image generate failed", err)
	}
	if len(resp.Data) == 0 {
		metrics.RecordImageCall(c.Name(), "generate", "no_image", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image generate returned no image", nil)
	}

	return c.store(ctx, "generate", start, resp.Data[0].B64JSON, resp.Data[0].RevisedPrompt)
}

// Edit applies a prompt to an existing image via the image edit endpoint.
// The API consumes files, so the input bytes take a detour through a
// temporary file.
func (c *OpenAIClient) Edit(ctx context.Context, inputImageID, prompt string) (*Result, error) {
	start := time.Now()

	data, _, err := c.blobs.Get(ctx, inputImageID)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "edit-input-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind temp file: %w", err)
	}

	resp, err := c.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          tmp,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		metrics.RecordImageCall(c.Name(), "edit", "error", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image edit failed", err)
	}
	if len(resp.Data) == 0 {
		metrics.RecordImageCall(c.Name(), "edit", "no_image", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image edit returned no image", nil)
	}

	return c.store(ctx, "edit", start, resp.Data[0].B64JSON, resp.Data[0].RevisedPrompt)
}

func (c *OpenAIClient) store(ctx context.Context, operation string, start time.Time, b64, responseText string) (*Result, error) {
	imageBytes, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		metrics.RecordImageCall(c.Name(), operation, "bad_payload", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image "+operation+" returned an unusable payload", err)
	}

	outputID, err := c.blobs.Put(ctx, imageBytes, "image/png")
	if err != nil {
		return nil, err
	}

	metrics.RecordImageCall(c.Name(), operation, "success", time.Since(start).Seconds())
	return &Result{OutputImageID: outputID, ResponseText: responseText}, nil
}
