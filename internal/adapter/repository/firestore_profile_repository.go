package repository

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/pkg/errors"
)

type firestoreProfileRepository struct {
	client *firestore.Client
}

func NewFirestoreProfileRepository(client *firestore.Client) repository.ProfileRepository {
	return &firestoreProfileRepository{
		client: client,
	}
}

func (r *firestoreProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	doc, err := r.client.Collection(profilesCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Profile", err)
		}
		return nil, errors.Query("Failed to get profile", err)
	}

	var p entity.Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, errors.Internal("Failed to parse profile data", err)
	}
	p.ID = doc.Ref.ID
	return &p, nil
}

func (r *firestoreProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Profile, error) {
	out := make(map[string]*entity.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Collection(profilesCollection).Doc(id))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.Query("Failed to fetch profiles", err)
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var p entity.Profile
		if err := doc.DataTo(&p); err != nil {
			continue
		}
		p.ID = doc.Ref.ID
		out[p.ID] = &p
	}
	return out, nil
}

func (r *firestoreProfileRepository) Upsert(ctx context.Context, p *entity.Profile) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.client.Collection(profilesCollection).Doc(p.ID).Set(ctx, p)
	if err != nil {
		return errors.Internal("Failed to save profile", err)
	}
	return nil
}

func (r *firestoreProfileRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.Collection(profilesCollection).Doc(id).Set(ctx, map[string]interface{}{
		"id":       id,
		"lastSeen": at,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update last seen", err)
	}
	return nil
}

func (r *firestoreProfileRepository) ListSeenSince(ctx context.Context, since time.Time, excludeID string) ([]*entity.Profile, error) {
	docs, err := r.client.Collection(profilesCollection).
		Where("lastSeen", ">", since).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Query("Failed to query online profiles", err)
	}

	profiles := make([]*entity.Profile, 0, len(docs))
	for _, doc := range docs {
		var p entity.Profile
		if err := doc.DataTo(&p); err != nil {
			continue
		}
		p.ID = doc.Ref.ID
		if p.ID == excludeID {
			continue
		}
		profiles = append(profiles, &p)
	}
	// Firestore requires the first orderBy on the inequality field, so order here.
	sortProfilesByUsername(profiles)
	return profiles, nil
}

func (r *firestoreProfileRepository) Search(ctx context.Context, term, excludeID string, limit int) ([]*entity.Profile, error) {
	needle := strings.ToLower(strings.TrimSpace(term))

	iter := r.client.Collection(profilesCollection).OrderBy("username", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var profiles []*entity.Profile
	for limit <= 0 || len(profiles) < limit {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Query("Failed to search profiles", err)
		}

		var p entity.Profile
		if err := doc.DataTo(&p); err != nil {
			continue
		}
		p.ID = doc.Ref.ID
		if p.ID == excludeID || !strings.Contains(strings.ToLower(p.Username), needle) {
			continue
		}
		profiles = append(profiles, &p)
	}
	return profiles, nil
}
