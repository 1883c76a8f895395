package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pixelbranch/image-edit-platform/internal/apperr"
	"github.com/pixelbranch/image-edit-platform/pkg/metrics"
)

// BucketName is the object store bucket holding image bytes.
const BucketName = "IMAGES"

// contentTypeKey is the object metadata key carrying the MIME type.
const contentTypeKey = "content-type"

// Store persists image bytes in a JetStream object store bucket.
type Store struct {
	obs jetstream.ObjectStore
}

// NewStore ensures the image bucket exists and returns a store over it.
func NewStore(ctx context.Context, client *Client) (*Store, error) {
	js := client.JetStream()

	obs, err := js.ObjectStore(ctx, BucketName)
	if err != nil {
		obs, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      BucketName,
			Description: "Uploaded and generated images",
			Compression: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object store: %w", err)
		}
	}

	return &Store{obs: obs}, nil
}

// Put stores image bytes under a fresh opaque id and returns the id.
func (s *Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	if err := s.PutWithID(ctx, id, data, contentType); err != nil {
		return "", err
	}
	return id, nil
}

// PutWithID stores image bytes under a pre-minted id, as used by the signed
// upload endpoint.
func (s *Store) PutWithID(ctx context.Context, id string, data []byte, contentType string) error {
	meta := jetstream.ObjectMeta{
		Name:     id,
		Metadata: map[string]string{contentTypeKey: contentType},
	}
	if _, err := s.obs.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}

	metrics.BlobBytesTotal.WithLabelValues("write").Add(float64(len(data)))
	return nil
}

// Get returns the bytes and content type for an image id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, string, error) {
	obj, err := s.obs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, "", apperr.NotFound("image %s not found", id)
		}
		return nil, "", fmt.Errorf("failed to get image: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	contentType := "application/octet-stream"
	if info, err := obj.Info(); err == nil {
		if ct, ok := info.Metadata[contentTypeKey]; ok && ct != "" {
			contentType = ct
		}
	}

	metrics.BlobBytesTotal.WithLabelValues("read").Add(float64(len(data)))
	return data, contentType, nil
}

// Exists reports whether an image id is present in the bucket.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.obs.GetInfo(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat image: %w", err)
	}
	return true, nil
}
