package repository

import (
	"context"
	"time"

	"directchat/internal/domain/entity"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Profile, error)
	Upsert(ctx context.Context, profile *entity.Profile) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	// ListSeenSince returns profiles whose lastSeen is after since, ordered by username.
	ListSeenSince(ctx context.Context, since time.Time, excludeID string) ([]*entity.Profile, error)
	// Search matches usernames case-insensitively by substring.
	Search(ctx context.Context, term, excludeID string, limit int) ([]*entity.Profile, error)
}
