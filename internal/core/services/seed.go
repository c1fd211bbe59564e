package services

import (
	"context"
	"errors"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeedAdmin describes the bootstrap administrator account.
type SeedAdmin struct {
	Username    string
	Password    string
	DisplayName string
}

// Bootstrap prepares the stores for serving: the singleton ownership
// record must exist, and a fresh deployment gets its first admin account.
// Safe to run from every instance at startup; everything here is
// idempotent.
func Bootstrap(ctx context.Context, states ports.StreamStateRepository, users ports.UserRepository, seed SeedAdmin, logger *zap.SugaredLogger) error {
	if err := states.EnsureInitialized(ctx); err != nil {
		return err
	}

	if seed.Username == "" || seed.Password == "" {
		return nil
	}

	if _, err := users.GetByUsername(ctx, seed.Username); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := HashPassword(seed.Password)
	if err != nil {
		return err
	}
	displayName := seed.DisplayName
	if displayName == "" {
		displayName = seed.Username
	}
	admin := &domain.User{
		ID:                 domain.UserID(uuid.New().String()),
		Username:           seed.Username,
		DisplayName:        displayName,
		PasswordHash:       hash,
		Role:               domain.RoleAdmin,
		MustChangePassword: true,
		CreatedAt:          time.Now(),
	}

	if err := users.Create(ctx, admin); err != nil {
		// A concurrently starting instance may have won the race.
		if errors.Is(err, domain.ErrUserExists) {
			return nil
		}
		return err
	}

	logger.Infow("seeded admin account", "username", seed.Username)
	return nil
}
