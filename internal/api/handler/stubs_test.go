package handler

import (
	"context"

	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (string, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return s.loginFn(ctx, email, password)
}

type stubTokenStore struct {
	tokens    []*domain.Token
	err       error
	deletedID string
}

func (s *stubTokenStore) GetOrCreate(_ context.Context, user *domain.User) (*domain.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tokens {
		if t.UserID == user.ID {
			return t, nil
		}
	}
	t := &domain.Token{Key: "new-" + user.ID, UserID: user.ID, Active: true}
	s.tokens = append(s.tokens, t)
	return t, nil
}

func (s *stubTokenStore) FindByValue(_ context.Context, key string) (*domain.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tokens {
		if t.Key == key {
			return t, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (s *stubTokenStore) FindByUser(_ context.Context, userID string) (*domain.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tokens {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (s *stubTokenStore) DeleteForUser(_ context.Context, userID string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.deletedID = userID
	kept := s.tokens[:0]
	var n int64
	for _, t := range s.tokens {
		if t.UserID == userID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.tokens = kept
	return n, nil
}

func (s *stubTokenStore) List(context.Context) ([]*domain.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens, nil
}
