package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"directchat/internal/domain/entity"
)

type BlobStoreMock struct {
	mock.Mock
}

func (m *BlobStoreMock) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	args := m.Called(ctx, path, body, contentType)
	return args.Error(0)
}

func (m *BlobStoreMock) PublicURL(path string) string {
	args := m.Called(path)
	return args.String(0)
}

func (m *BlobStoreMock) Remove(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	var p *entity.Profile
	if val := args.Get(0); val != nil {
		p = val.(*entity.Profile)
	}
	return p, args.Error(1)
}

func (m *ProfileRepositoryMock) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Profile, error) {
	args := m.Called(ctx, ids)
	var out map[string]*entity.Profile
	if val := args.Get(0); val != nil {
		out = val.(map[string]*entity.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) Upsert(ctx context.Context, profile *entity.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) ListSeenSince(ctx context.Context, since time.Time, excludeID string) ([]*entity.Profile, error) {
	args := m.Called(ctx, since, excludeID)
	var out []*entity.Profile
	if val := args.Get(0); val != nil {
		out = val.([]*entity.Profile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) Search(ctx context.Context, term, excludeID string, limit int) ([]*entity.Profile, error) {
	args := m.Called(ctx, term, excludeID, limit)
	var out []*entity.Profile
	if val := args.Get(0); val != nil {
		out = val.([]*entity.Profile)
	}
	return out, args.Error(1)
}
