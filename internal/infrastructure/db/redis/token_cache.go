package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

const (
	tokenKeyPrefix  = "auth:token:"
	defaultCacheTTL = 5 * time.Minute
	// revokedMarker is stored in place of a revoked principal.
	revokedMarker = "revoked"
	// minRevokeTTL outlives any in-flight lookup even when the cache TTL is short.
	minRevokeTTL = time.Minute
)

// cachedUser is the subset of a user needed to serve an authenticated
// request. The password hash never leaves the database.
type cachedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenCache maps token keys to their owners.
// Key format: auth:token:<token_key>, holding either a JSON user or
// revokedMarker until the entry expires.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenCache creates a TokenCache; entries expire after ttl (5m when ttl <= 0).
func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &TokenCache{client: client, ttl: ttl}
}

var _ ports.PrincipalCache = (*TokenCache)(nil)

func (c *TokenCache) Get(ctx context.Context, key string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("token cache get: %w", err)
	}
	if string(raw) == revokedMarker {
		return nil, ports.ErrCacheMiss
	}

	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		return nil, fmt.Errorf("token cache decode: %w", err)
	}
	return &domain.User{ID: cu.ID, Name: cu.Name, Email: cu.Email, Role: domain.Role(cu.Role)}, nil
}

func (c *TokenCache) Set(ctx context.Context, key string, user *domain.User) error {
	raw, err := json.Marshal(cachedUser{ID: user.ID, Name: user.Name, Email: user.Email, Role: string(user.Role)})
	if err != nil {
		return fmt.Errorf("token cache encode: %w", err)
	}
	// SetNX keeps a concurrent revocation from being overwritten.
	return c.client.SetNX(ctx, c.key(key), raw, c.ttl).Err()
}

// Revoke replaces the given keys with revokedMarker for one TTL (at least
// minRevokeTTL). Unknown keys are revoked too.
func (c *TokenCache) Revoke(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ttl := max(c.ttl, minRevokeTTL)
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(ctx, c.key(k), revokedMarker, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("token cache revoke: %w", err)
	}
	return nil
}

func (c *TokenCache) key(tokenKey string) string {
	return tokenKeyPrefix + tokenKey
}
