package image

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/pkg/metrics"
)

// geminiModel is the image-capable Gemini model used for both editing and
// generation.
const geminiModel = "gemini-2.5-flash-image-preview"

// GeminiClient edits and generates images through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	blobs  BlobStore
}

// NewGeminiClient creates a new Gemini image client.
func NewGeminiClient(ctx context.Context, apiKey string, blobs BlobStore) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &GeminiClient{client: client, blobs: blobs}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Edit sends the input image and prompt to Gemini and stores the returned
// image.
func (c *GeminiClient) Edit(ctx context.Context, inputImageID, prompt string) (*Result, error) {
	data, contentType, err := c.blobs.Get(ctx, inputImageID)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(data, contentType),
	}
	return c.call(ctx, "edit", parts)
}

// Generate creates an image from the prompt alone and stores it.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*Result, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	return c.call(ctx, "generate", parts)
}

func (c *GeminiClient) call(ctx context.Context, operation string, parts []*genai.Part) (*Result, error) {
	start := time.Now()

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, geminiModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		metrics.RecordImageCall(c.Name(), operation, "error", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image "+operation+" failed", err)
	}

	var (
		text       strings.Builder
		imageBytes []byte
		imageMIME  string
	)
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				imageBytes = part.InlineData.Data
				imageMIME = part.InlineData.MIMEType
			}
		}
	}

	if len(imageBytes) == 0 {
		metrics.RecordImageCall(c.Name(), operation, "no_image", time.Since(start).Seconds())
		return nil, apperr.ExternalService("image "+operation+" returned no image", errors.New(strings.TrimSpace(text.String())))
	}

	if imageMIME == "" {
		imageMIME = "image/png"
	}
	outputID, err := c.blobs.Put(ctx, imageBytes, imageMIME)
	if err != nil {
		return nil, err
	}

	metrics.RecordImageCall(c.Name(), operation, "success", time.Since(start).Seconds())
	return &Result{
		OutputImageID: outputID,
		ResponseText:  strings.TrimSpace(text.String()),
	}, nil
}
