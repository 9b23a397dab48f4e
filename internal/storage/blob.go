// Package storage defines where run artifacts are written. Implementations
// live in the gcs, local and memory subpackages; the discovered-id stores
// live in postgres and memory.
package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// BlobStore saves an artifact under path and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// MockBlobStore is a testify mock of BlobStore.
type MockBlobStore struct {
	mock.Mock
}

// PutObject records the call and returns the configured results.
func (m *MockBlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, path, contentType, r)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
