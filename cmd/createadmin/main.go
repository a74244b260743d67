// Command createadmin creates the administrator account from ADMIN_NAME,
// ADMIN_EMAIL and ADMIN_PASSWORD and prints its API token. When the admin
// already exists it prints that account's token instead, issuing one if the
// account has none.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/edu-platform/platform-api/internal/app"
	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
	"github.com/edu-platform/platform-api/internal/pkg/config"
	"github.com/edu-platform/platform-api/pkg/logger"
)

var errNotAdmin = errors.New("existing user is not an admin")

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "createadmin"})

	if err := run(cfg, log); err != nil {
		if errors.Is(err, errNotAdmin) {
			log.Warn().Str("email", cfg.Admin.Email).Msg("user already exists and is not an admin, nothing to do")
			return
		}
		log.Error().Err(err).Msg("failed to create admin user")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialise application: %w", err)
	}
	defer func() {
		if cerr := application.Close(ctx); cerr != nil {
			log.Error().Err(cerr).Msg("closing connections")
		}
	}()

	key, created, err := createAdmin(ctx, application.AuthService, application.Users, application.Tokens, cfg.Admin)
	if err != nil {
		return err
	}

	if created {
		log.Info().Str("email", cfg.Admin.Email).Msg("admin user created")
	} else {
		log.Warn().Str("email", cfg.Admin.Email).Msg("admin user already exists")
	}
	fmt.Println(key)
	return nil
}

// createAdmin registers the admin and returns its token key. An existing
// admin gets its current token back, created if missing; created reports
// whether the account is new.
func createAdmin(ctx context.Context, auth ports.AuthService, users ports.UserRepository, tokens ports.TokenStore, admin config.AdminConfig) (key string, created bool, err error) {
	user, err := auth.Register(ctx, ports.RegisterInput{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
		Role:     domain.RoleAdmin,
	})
	switch {
	case err == nil:
		created = true
	case errors.Is(err, domain.ErrUserExists):
		user, err = users.FindByEmail(ctx, domain.NormalizeEmail(admin.Email))
		if err != nil {
			return "", false, fmt.Errorf("load existing admin: %w", err)
		}
		if !user.IsAdmin() {
			return "", false, errNotAdmin
		}
	default:
		return "", false, err
	}

	tok, err := tokens.GetOrCreate(ctx, user)
	if err != nil {
		return "", created, fmt.Errorf("admin token: %w", err)
	}
	return tok.Key, created, nil
}
