package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

const maxCreateAttempts = 3

// TokenStore owns the token lifecycle on top of a TokenRepository.
type TokenStore struct {
	repo     ports.TokenRepository
	cache    ports.PrincipalCache
	generate KeyGenerator
	log      zerolog.Logger
}

// NewTokenStore returns a TokenStore. cache may be nil; generate defaults to GenerateKey.
func NewTokenStore(repo ports.TokenRepository, cache ports.PrincipalCache, generate KeyGenerator, log zerolog.Logger) *TokenStore {
	if generate == nil {
		generate = GenerateKey
	}
	return &TokenStore{repo: repo, cache: cache, generate: generate, log: log}
}

// GetOrCreate returns the user's token, creating one if the user has none.
//
// Concurrent first calls for the same user race on the repository's unique
// constraints; the loser re-reads and returns the winner's token.
func (s *TokenStore) GetOrCreate(ctx context.Context, user *domain.User) (*domain.Token, error) {
	tok, err := s.repo.FindByUser(ctx, user.ID)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, domain.ErrTokenNotFound) {
		return nil, fmt.Errorf("get token: %w", err)
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		key, err := s.generate()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		tok = &domain.Token{
			Key:       key,
			UserID:    user.ID,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.repo.Insert(ctx, tok)
		if err == nil {
			s.log.Info().Str("user_id", user.ID).Msg("token created")
			return tok, nil
		}
		if !errors.Is(err, domain.ErrDuplicateToken) {
			return nil, fmt.Errorf("create token: %w", err)
		}

		winner, ferr := s.repo.FindByUser(ctx, user.ID)
		if ferr == nil {
			s.log.Debug().Str("user_id", user.ID).Msg("concurrent token creation, using existing token")
			return winner, nil
		}
		if !errors.Is(ferr, domain.ErrTokenNotFound) {
			return nil, fmt.Errorf("get token: %w", ferr)
		}

		// Key collision with another user's token.
		s.log.Warn().Str("user_id", user.ID).Int("attempt", attempt).Msg("token key collision")
	}

	return nil, domain.ErrTokenConflict
}

// FindByValue looks a token up by exact key.
func (s *TokenStore) FindByValue(ctx context.Context, key string) (*domain.Token, error) {
	return s.repo.FindByKey(ctx, key)
}

// FindByUser returns the user's canonical (oldest) token.
func (s *TokenStore) FindByUser(ctx context.Context, userID string) (*domain.Token, error) {
	return s.repo.FindByUser(ctx, userID)
}

func (s *TokenStore) List(ctx context.Context) ([]*domain.Token, error) {
	return s.repo.List(ctx)
}

// DeleteForUser removes every token of the user. Cached keys are revoked
// before the rows go away; if the cache cannot be updated nothing is deleted,
// so a retry still sees the keys.
func (s *TokenStore) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	tokens, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}

	if s.cache != nil && len(tokens) > 0 {
		keys := make([]string, 0, len(tokens))
		for _, t := range tokens {
			keys = append(keys, t.Key)
		}
		if err := s.cache.Revoke(ctx, keys...); err != nil {
			return 0, fmt.Errorf("revoke cached tokens: %w", err)
		}
	}

	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete tokens: %w", err)
	}

	s.log.Info().Str("user_id", userID).Int64("deleted", n).Msg("tokens deleted")
	return n, nil
}
