// Package bootstrap runs one-time startup tasks.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/medfeed/backend/internal/models"
	"github.com/anonto42/medfeed/backend/internal/repositories"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// SeedSuperAdmin creates the superadmin account if it does not exist yet.
// Idempotent: reruns are no-ops once the account is present.
func SeedSuperAdmin(ctx context.Context, users repositories.UserRepository, email, password string, logger zerolog.Logger) error {
	if email == "" || password == "" {
		logger.Debug().Msg("superadmin seed not configured, skipping")
		return nil
	}

	existing, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleSuperAdmin {
			return fmt.Errorf("account %s exists but is not a superadmin", email)
		}
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		FullName: "Super Admin",
		Email:    email,
		Password: string(hash),
		Role:     models.RoleSuperAdmin,
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return err
	}

	logger.Info().Str("email", email).Msg("superadmin account created")
	return nil
}
