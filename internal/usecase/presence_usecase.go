package usecase

import (
	"context"
	"time"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/pkg/logger"
)

type PresenceUseCase struct {
	profileRepo repository.ProfileRepository
	window      time.Duration
	interval    time.Duration
	now         Clock
}

func NewPresenceUseCase(profileRepo repository.ProfileRepository, window, interval time.Duration) *PresenceUseCase {
	return &PresenceUseCase{
		profileRepo: profileRepo,
		window:      window,
		interval:    interval,
		now:         time.Now,
	}
}

// Touch records a heartbeat for the user.
func (uc *PresenceUseCase) Touch(ctx context.Context, userID string) error {
	if err := uc.profileRepo.TouchLastSeen(ctx, userID, uc.now()); err != nil {
		logger.Warn("Presence: touch %s failed: %v", userID, err)
		return err
	}
	return nil
}

// ListOnline returns users seen within the online window, ordered by username.
// Failures yield an empty list.
func (uc *PresenceUseCase) ListOnline(ctx context.Context, excludeUserID string) []*entity.Profile {
	profiles, err := uc.profileRepo.ListSeenSince(ctx, uc.now().Add(-uc.window), excludeUserID)
	if err != nil {
		logger.Warn("Presence: list online failed: %v", err)
		return []*entity.Profile{}
	}
	if profiles == nil {
		return []*entity.Profile{}
	}
	return profiles
}

// Heartbeat touches the user immediately and then every interval until ctx is done.
func (uc *PresenceUseCase) Heartbeat(ctx context.Context, userID string) {
	uc.Touch(ctx, userID)

	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			uc.Touch(ctx, userID)
		case <-ctx.Done():
			return
		}
	}
}
