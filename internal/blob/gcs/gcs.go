// Package gcs implements the blob port on Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/eggbucket/admin-api/internal/blob"
)

type Store struct {
	cli    *storage.Client
	bucket string
}

func New(ctx context.Context, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	cli, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Store{cli: cli, bucket: bucket}, nil
}

func (s *Store) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	w := s.cli.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", key, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key), nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}

var _ blob.Store = (*Store)(nil)
