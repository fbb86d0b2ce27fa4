package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/vbonduro/invoicescan/internal/domain"
	"github.com/vbonduro/invoicescan/internal/imagestore"
)

// GCSImageStore keeps images as objects in a Google Cloud Storage bucket.
// Storage keys are object names relative to the configured prefix.
type GCSImageStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSImageStore uses application default credentials unless opts say
// otherwise.
func NewGCSImageStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSImageStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSImageStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSImageStore) Save(ctx context.Context, name, mimeType string, r io.Reader) (string, error) {
	key := imagestore.UniqueName(name, mimeType)

	w := s.object(key).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close gcs writer: %w", err)
	}
	return key, nil
}

func (s *GCSImageStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	r, err := s.object(storageKey).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", fmt.Errorf("image %q: %w", storageKey, domain.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open gcs reader: %w", err)
	}

	mimeType := r.Attrs.ContentType
	if mimeType == "" {
		mimeType = imagestore.ExtToMimeType(storageKey)
	}
	return r, mimeType, nil
}

func (s *GCSImageStore) Delete(ctx context.Context, storageKey string) error {
	err := s.object(storageKey).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("image %q: %w", storageKey, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete gcs object %q in bucket %q: %w", storageKey, s.bucket, err)
	}
	return nil
}

func (s *GCSImageStore) Close() error {
	return s.client.Close()
}

func (s *GCSImageStore) object(storageKey string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(objectName(s.prefix, storageKey))
}

func objectName(prefix, storageKey string) string {
	if prefix == "" {
		return storageKey
	}
	return path.Join(prefix, storageKey)
}
