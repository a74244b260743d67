package ports

import (
	"context"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

// RegisterInput carries the fields needed to create a user account.
type RegisterInput struct {
	Name     string      `validate:"required,max=255"`
	Email    string      `validate:"required,email,max=254"`
	Password string      `validate:"required"`
	Role     domain.Role `validate:"required,oneof=ADMIN CUSTOMER"`
}

// AuthService covers credential checks and account creation.
type AuthService interface {
	// Login returns the user's token key, creating the token on first login.
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
}

// Authenticator resolves a presented token key to its user.
//
// A key that does not resolve yields domain.ErrUnauthenticated; any other
// error is an infrastructure failure.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*domain.User, error)
}

// TokenStore is the token lifecycle used by the HTTP layer.
type TokenStore interface {
	GetOrCreate(ctx context.Context, user *domain.User) (*domain.Token, error)
	FindByValue(ctx context.Context, key string) (*domain.Token, error)
	FindByUser(ctx context.Context, userID string) (*domain.Token, error)
	DeleteForUser(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context) ([]*domain.Token, error)
}
