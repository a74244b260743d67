package ports

import (
	"context"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

// TokenRepository persists API tokens.
//
// Implementations must enforce uniqueness of both the token key and the owning
// user, and report a violation of either as domain.ErrDuplicateToken.
type TokenRepository interface {
	// Insert stores a new token and fills in its ID.
	Insert(ctx context.Context, token *domain.Token) error
	// FindByKey returns the token with exactly this key, with its owner joined.
	FindByKey(ctx context.Context, key string) (*domain.Token, error)
	// FindByUser returns the oldest token owned by userID.
	FindByUser(ctx context.Context, userID string) (*domain.Token, error)
	// ListByUser returns every token owned by userID, oldest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Token, error)
	// List returns all tokens with their owners joined.
	List(ctx context.Context) ([]*domain.Token, error)
	// DeleteByUser removes every token owned by userID.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
