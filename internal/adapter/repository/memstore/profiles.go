package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"directchat/internal/domain/entity"
	"directchat/pkg/errors"
)

type profileRepo struct{ s *Store }

func (r *profileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *profileRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]*entity.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *profileRepo) Upsert(ctx context.Context, p *entity.Profile) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.profiles[p.ID] = &cp
	return nil
}

func (r *profileRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[id]
	if !ok {
		p = &entity.Profile{ID: id, CreatedAt: at}
		r.s.profiles[id] = p
	}
	p.LastSeen = at
	return nil
}

func (r *profileRepo) ListSeenSince(ctx context.Context, since time.Time, excludeID string) ([]*entity.Profile, error) {
	return r.sorted(func(p *entity.Profile) bool {
		return p.ID != excludeID && p.LastSeen.After(since)
	}, 0), nil
}

func (r *profileRepo) Search(ctx context.Context, term, excludeID string, limit int) ([]*entity.Profile, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	return r.sorted(func(p *entity.Profile) bool {
		return p.ID != excludeID && strings.Contains(strings.ToLower(p.Username), needle)
	}, limit), nil
}

func (r *profileRepo) sorted(keep func(*entity.Profile) bool, limit int) []*entity.Profile {
	r.s.mu.RLock()
	var out []*entity.Profile
	for _, p := range r.s.profiles {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
