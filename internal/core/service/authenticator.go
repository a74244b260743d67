package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

// APIKeyAuthenticator resolves a token key to its owner.
type APIKeyAuthenticator struct {
	tokens ports.TokenRepository
	cache  ports.PrincipalCache
	log    zerolog.Logger
}

// NewAPIKeyAuthenticator returns an authenticator backed by tokens. cache may be nil.
func NewAPIKeyAuthenticator(tokens ports.TokenRepository, cache ports.PrincipalCache, log zerolog.Logger) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{tokens: tokens, cache: cache, log: log}
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, key string) (*domain.User, error) {
	if key == "" {
		return nil, domain.ErrUnauthenticated
	}

	if a.cache != nil {
		user, err := a.cache.Get(ctx, key)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ports.ErrCacheMiss) {
			a.log.Warn().Err(err).Msg("principal cache read failed, falling back to store")
		}
	}

	tok, err := a.tokens.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if tok.User == nil {
		return nil, domain.ErrUnauthenticated
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, tok.User); err != nil {
			a.log.Warn().Err(err).Str("user_id", tok.UserID).Msg("principal cache write failed")
		}
	}
	return tok.User, nil
}

// AdminAPIKeyAuthenticator only accepts tokens owned by ADMIN users. A valid
// token of any other role is rejected exactly like an unknown one.
type AdminAPIKeyAuthenticator struct {
	next ports.Authenticator
}

func NewAdminAPIKeyAuthenticator(next ports.Authenticator) *AdminAPIKeyAuthenticator {
	return &AdminAPIKeyAuthenticator{next: next}
}

func (a *AdminAPIKeyAuthenticator) Authenticate(ctx context.Context, key string) (*domain.User, error) {
	user, err := a.next.Authenticate(ctx, key)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}
