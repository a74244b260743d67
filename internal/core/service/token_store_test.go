package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

func newTestStore(t *testing.T, gen KeyGenerator) (*TokenStore, *stubTokenRepo, *stubCache, *domain.User) {
	t.Helper()
	users := newStubUserRepo()
	user, err := users.Create(context.Background(), &domain.User{Name: "n", Email: "e@e.com", Role: domain.RoleCustomer})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	repo := newStubTokenRepo(users)
	cache := newStubCache()
	return NewTokenStore(repo, cache, gen, zerolog.Nop()), repo, cache, user
}

func TestTokenStore_GetOrCreate_CreatesOnce(t *testing.T) {
	store, repo, _, user := newTestStore(t, nil)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, user)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if len(first.Key) != domain.TokenKeyLength {
		t.Fatalf("unexpected key length %d", len(first.Key))
	}
	if first.UserID != user.ID || !first.Active {
		t.Fatalf("unexpected token: %+v", first)
	}

	second, err := store.GetOrCreate(ctx, user)
	if err != nil {
		t.Fatalf("second GetOrCreate returned error: %v", err)
	}
	if second.Key != first.Key {
		t.Fatalf("expected same key, got %s and %s", first.Key, second.Key)
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 stored token, got %d", repo.count())
	}
}

func TestTokenStore_GetOrCreate_Concurrent(t *testing.T) {
	store, repo, _, user := newTestStore(t, nil)
	ctx := context.Background()

	const callers = 16
	keys := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := store.GetOrCreate(ctx, user)
			errs[i] = err
			if tok != nil {
				keys[i] = tok.Key
			}
		}(i)
	}
	wg.Wait()

	for i := range keys {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if keys[i] != keys[0] {
			t.Fatalf("caller %d got %s, caller 0 got %s", i, keys[i], keys[0])
		}
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 stored token, got %d", repo.count())
	}
}

func TestTokenStore_GetOrCreate_LoserReturnsWinner(t *testing.T) {
	store, repo, _, user := newTestStore(t, nil)

	winner := &domain.Token{Key: "winner", UserID: user.ID, Active: true}
	repo.onInsert = func(*domain.Token) {
		if repo.inserts == 1 {
			_ = repo.insertLocked(winner)
		}
	}

	tok, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if tok.Key != "winner" {
		t.Fatalf("expected winner's key, got %s", tok.Key)
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 stored token, got %d", repo.count())
	}
}

func TestTokenStore_GetOrCreate_RetriesKeyCollision(t *testing.T) {
	store, repo, _, user := newTestStore(t, fixedKeys("taken", "fresh"))
	repo.tokens = append(repo.tokens, &domain.Token{ID: "t0", Key: "taken", UserID: "someone-else"})

	tok, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if tok.Key != "fresh" {
		t.Fatalf("expected retry with fresh key, got %s", tok.Key)
	}
	if repo.inserts != 2 {
		t.Fatalf("expected 2 insert attempts, got %d", repo.inserts)
	}
}

func TestTokenStore_GetOrCreate_GivesUpAfterMaxAttempts(t *testing.T) {
	store, repo, _, user := newTestStore(t, fixedKeys("taken", "taken", "taken"))
	repo.tokens = append(repo.tokens, &domain.Token{ID: "t0", Key: "taken", UserID: "someone-else"})

	_, err := store.GetOrCreate(context.Background(), user)
	if !errors.Is(err, domain.ErrTokenConflict) {
		t.Fatalf("expected ErrTokenConflict, got %v", err)
	}
	if repo.inserts != maxCreateAttempts {
		t.Fatalf("expected %d insert attempts, got %d", maxCreateAttempts, repo.inserts)
	}
}

func TestTokenStore_GetOrCreate_StorageFailure(t *testing.T) {
	store, repo, _, user := newTestStore(t, nil)
	boom := errors.New("connection refused")
	repo.insertErr = boom

	_, err := store.GetOrCreate(context.Background(), user)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestTokenStore_GetOrCreate_GeneratorFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	store, repo, _, user := newTestStore(t, func() (string, error) { return "", boom })

	if _, err := store.GetOrCreate(context.Background(), user); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if repo.inserts != 0 {
		t.Fatalf("expected no insert, got %d", repo.inserts)
	}
}

func TestTokenStore_FindByValue_ExactMatch(t *testing.T) {
	store, _, _, user := newTestStore(t, fixedKeys("abcdef"))
	ctx := context.Background()
	if _, err := store.GetOrCreate(ctx, user); err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}

	tok, err := store.FindByValue(ctx, "abcdef")
	if err != nil {
		t.Fatalf("FindByValue returned error: %v", err)
	}
	if tok.User == nil || tok.User.ID != user.ID {
		t.Fatalf("expected owner to be joined, got %+v", tok.User)
	}

	for _, v := range []string{"ABCDEF", "abcde", "abcdef ", ""} {
		if _, err := store.FindByValue(ctx, v); !errors.Is(err, domain.ErrTokenNotFound) {
			t.Fatalf("FindByValue(%q): expected ErrTokenNotFound, got %v", v, err)
		}
	}
}

func TestTokenStore_FindByUser_FirstTokenWins(t *testing.T) {
	store, repo, _, user := newTestStore(t, nil)
	repo.tokens = append(repo.tokens,
		&domain.Token{ID: "t1", Key: "first", UserID: user.ID},
		&domain.Token{ID: "t2", Key: "second", UserID: user.ID},
	)

	tok, err := store.FindByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByUser returned error: %v", err)
	}
	if tok.Key != "first" {
		t.Fatalf("expected first token, got %s", tok.Key)
	}
}

func TestTokenStore_DeleteForUser(t *testing.T) {
	store, repo, cache, user := newTestStore(t, fixedKeys("k1"))
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, user); err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	_ = cache.Set(ctx, "k1", user)

	n, err := store.DeleteForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("DeleteForUser returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted token, got %d", n)
	}
	if repo.count() != 0 {
		t.Fatalf("expected no stored tokens, got %d", repo.count())
	}
	if _, err := cache.Get(ctx, "k1"); err == nil {
		t.Fatalf("expected cache entry to be evicted")
	}
	if _, err := store.FindByUser(ctx, user.ID); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after delete, got %v", err)
	}

	n, err = store.DeleteForUser(ctx, user.ID)
	if err != nil || n != 0 {
		t.Fatalf("expected idempotent delete, got n=%d err=%v", n, err)
	}
}

func TestTokenStore_DeleteForUser_CacheFailureKeepsTokens(t *testing.T) {
	store, repo, cache, user := newTestStore(t, fixedKeys("k1"))
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, user); err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	cache.revokeErr = errors.New("redis down")

	if _, err := store.DeleteForUser(ctx, user.ID); err == nil {
		t.Fatalf("expected error when the cache cannot revoke")
	}
	if repo.count() != 1 {
		t.Fatalf("tokens must survive a failed revocation, got %d", repo.count())
	}

	cache.revokeErr = nil
	n, err := store.DeleteForUser(ctx, user.ID)
	if err != nil || n != 1 {
		t.Fatalf("retry: expected 1 deleted, got n=%d err=%v", n, err)
	}
	if !cache.revoked["k1"] {
		t.Fatalf("expected k1 to be revoked in the cache")
	}
}
