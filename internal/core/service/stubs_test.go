package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // by ID
	err   error                   // if set, every call returns it
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	clone := cloneUser(user)
	clone.ID = "u" + strconv.Itoa(len(r.users)+1)
	r.users[clone.ID] = cloneUser(clone)
	return clone, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

// stubTokenRepo mirrors the unique indexes on key and user of the real stores.
type stubTokenRepo struct {
	mu      sync.Mutex
	users   *stubUserRepo
	tokens  []*domain.Token
	seq     int
	inserts int

	findErr   error                 // returned by FindByKey/FindByUser when set
	insertErr error                 // returned by Insert when set
	onInsert  func(t *domain.Token) // runs before the unique checks, under the lock
	afterFind func()                // runs after FindByKey, outside the lock
	findCalls int                   // FindByKey invocations
}

func newStubTokenRepo(users *stubUserRepo) *stubTokenRepo {
	return &stubTokenRepo{users: users}
}

func (r *stubTokenRepo) withOwner(t *domain.Token) *domain.Token {
	clone := *t
	if r.users != nil {
		r.users.mu.Lock()
		clone.User = cloneUser(r.users.users[t.UserID])
		r.users.mu.Unlock()
	}
	return &clone
}

func (r *stubTokenRepo) insertLocked(t *domain.Token) error {
	for _, existing := range r.tokens {
		if existing.Key == t.Key || existing.UserID == t.UserID {
			return domain.ErrDuplicateToken
		}
	}
	r.seq++
	t.ID = "t" + strconv.Itoa(r.seq)
	clone := *t
	r.tokens = append(r.tokens, &clone)
	return nil
}

func (r *stubTokenRepo) Insert(_ context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.onInsert != nil {
		r.onInsert(t)
	}
	return r.insertLocked(t)
}

func (r *stubTokenRepo) FindByKey(_ context.Context, key string) (*domain.Token, error) {
	tok, err := r.findByKey(key)
	if r.afterFind != nil {
		r.afterFind()
	}
	return tok, err
}

func (r *stubTokenRepo) findByKey(key string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, t := range r.tokens {
		if t.Key == key {
			return r.withOwner(t), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *stubTokenRepo) FindByUser(_ context.Context, userID string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, t := range r.tokens {
		if t.UserID == userID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *stubTokenRepo) ListByUser(_ context.Context, userID string) ([]*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Token
	for _, t := range r.tokens {
		if t.UserID == userID {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubTokenRepo) List(_ context.Context) ([]*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, r.withOwner(t))
	}
	return out, nil
}

func (r *stubTokenRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return n, nil
}

func (r *stubTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// stubCache follows the Redis cache contract: Set never overwrites an
// entry and revoked keys stay blocked.
type stubCache struct {
	mu        sync.Mutex
	entries   map[string]*domain.User
	revoked   map[string]bool
	getErr    error
	revokeErr error
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*domain.User), revoked: make(map[string]bool)}
}

func (c *stubCache) Get(_ context.Context, key string) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	u, ok := c.entries[key]
	if !ok || c.revoked[key] {
		return nil, ports.ErrCacheMiss
	}
	return cloneUser(u), nil
}

func (c *stubCache) Set(_ context.Context, key string, user *domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok || c.revoked[key] {
		return nil
	}
	c.entries[key] = cloneUser(user)
	return nil
}

func (c *stubCache) Revoke(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revokeErr != nil {
		return c.revokeErr
	}
	for _, k := range keys {
		delete(c.entries, k)
		c.revoked[k] = true
	}
	return nil
}

// plainHasher keeps tests fast; it is not a real hash.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	return "plain$" + password, nil
}

func (plainHasher) Verify(hash, password string) bool {
	return strings.HasPrefix(hash, "plain$") && hash == "plain$"+password
}

// fixedKeys returns the given keys in order, then falls back to GenerateKey.
func fixedKeys(keys ...string) KeyGenerator {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(keys) == 0 {
			return GenerateKey()
		}
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}
}
