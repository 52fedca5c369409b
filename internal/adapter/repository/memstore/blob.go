package memstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"directchat/internal/domain/service"
	"directchat/pkg/errors"
)

type Object struct {
	Data        []byte
	ContentType string
}

// BlobStore keeps uploaded objects in memory and serves URLs under baseURL.
type BlobStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

func NewBlobStore(baseURL string) *BlobStore {
	return &BlobStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

var _ service.BlobStore = (*BlobStore)(nil)

func (b *BlobStore) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return errors.Upload("Failed to read upload body", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; ok {
		return errors.Upload("Object already exists", nil)
	}
	b.objects[path] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (b *BlobStore) PublicURL(path string) string {
	return b.baseURL + "/" + path
}

func (b *BlobStore) Remove(ctx context.Context, paths []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range paths {
		delete(b.objects, p)
	}
	return nil
}

func (b *BlobStore) Object(path string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.objects[path]
	return o, ok
}

func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
