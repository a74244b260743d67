package ports

import (
	"context"
	"errors"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// PrincipalCache remembers which user a token key resolved to.
type PrincipalCache interface {
	// Get returns ErrCacheMiss when key is not cached or was revoked.
	Get(ctx context.Context, key string) (*domain.User, error)
	// Set caches user under key unless key is already cached or revoked.
	Set(ctx context.Context, key string, user *domain.User) error
	// Revoke drops keys and blocks Set for them for the entry lifetime, so a
	// lookup that started before the revocation cannot cache the key again.
	Revoke(ctx context.Context, keys ...string) error
}
