package cache

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/cloo-solutions/docingest/internal/storage"
)

// ObjectClient is the subset of the S3 client the cache needs.
type ObjectClient interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// S3Store keeps artifacts as objects under a key prefix, so a run can resume
// on a different machine.
type S3Store struct {
	client ObjectClient
	prefix string
}

// NewS3Store creates an S3Store writing under prefix
func NewS3Store(client ObjectClient, prefix string) *S3Store {
	return &S3Store{client: client, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return path.Clean(key)
	}
	return path.Join(s.prefix, key)
}

// Exists reports whether an artifact object exists for key
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.client.ObjectExists(ctx, s.objectKey(key))
}

// Read returns the artifact bytes for key
func (s *S3Store) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetObject(ctx, s.objectKey(key))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write stores data under key. S3 puts are atomic per object.
func (s *S3Store) Write(ctx context.Context, key string, data []byte) error {
	return s.client.PutObject(ctx, s.objectKey(key), data, "application/json")
}
