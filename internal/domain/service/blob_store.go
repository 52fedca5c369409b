package service

import (
	"context"
	"io"
)

// BlobStore stores attachment objects and issues their public URLs.
type BlobStore interface {
	Upload(ctx context.Context, path string, body io.Reader, contentType string) error
	PublicURL(path string) string
	Remove(ctx context.Context, paths []string) error
}
