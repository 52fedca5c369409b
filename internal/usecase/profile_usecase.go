package usecase

import (
	"context"
	"strings"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

type ProfileUseCase struct {
	profileRepo repository.ProfileRepository
	searchLimit int
}

func NewProfileUseCase(profileRepo repository.ProfileRepository, searchLimit int) *ProfileUseCase {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &ProfileUseCase{
		profileRepo: profileRepo,
		searchLimit: searchLimit,
	}
}

func (uc *ProfileUseCase) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	return uc.profileRepo.GetByID(ctx, userID)
}

// SaveProfile creates or renames the caller's profile.
func (uc *ProfileUseCase) SaveProfile(ctx context.Context, userID, username string) (*entity.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.BadRequest("username is required", nil)
	}

	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
		profile = &entity.Profile{ID: userID}
	}
	profile.Username = username

	if err := uc.profileRepo.Upsert(ctx, profile); err != nil {
		logger.Error("SaveProfile Error: %s: %v", userID, err)
		return nil, err
	}
	return profile, nil
}

// Search finds other users by case-insensitive username substring. Failures
// yield an empty list.
func (uc *ProfileUseCase) Search(ctx context.Context, userID, term string, limit int) []*entity.Profile {
	if strings.TrimSpace(term) == "" {
		return []*entity.Profile{}
	}
	if limit <= 0 || limit > uc.searchLimit {
		limit = uc.searchLimit
	}

	profiles, err := uc.profileRepo.Search(ctx, term, userID, limit)
	if err != nil {
		logger.Warn("Profile search failed for %q: %v", term, err)
		return []*entity.Profile{}
	}
	if profiles == nil {
		return []*entity.Profile{}
	}
	return profiles
}
