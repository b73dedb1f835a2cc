package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// MaxCoverBytes caps a single cover upload.
const MaxCoverBytes = 8 << 20

const coverKeyPrefix = "covers/"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// CoverStore stores book cover images under generated keys in an
// object-storage backend.
type CoverStore struct {
	backend ObjectStorage
}

// NewCoverStore constructs a CoverStore for the provided backend.
func NewCoverStore(backend ObjectStorage) *CoverStore {
	return &CoverStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *CoverStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Save uploads a cover and returns the generated object key.
func (s *CoverStore) Save(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	key := coverKeyPrefix + uuid.NewString()
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Open opens a reader for a previously stored cover.
func (s *CoverStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Remove deletes a stored cover.
func (s *CoverStore) Remove(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *CoverStore) Bucket() string {
	return s.backend.Bucket()
}
