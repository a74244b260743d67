package sqldb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

const oldestFirst = "created_at ASC, id ASC"

type TokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) *TokenRepository { return &TokenRepository{db: db} }

// Insert stores t and sets its ID. A clash on either the key or the owner
// returns domain.ErrDuplicateToken.
func (r *TokenRepository) Insert(ctx context.Context, t *domain.Token) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	uid, ok := parseID(t.UserID)
	if !ok {
		return fmt.Errorf("insert token: invalid user id %q", t.UserID)
	}
	rec := tokenRecord{
		Key:       t.Key,
		UserID:    uid,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateToken
		}
		return fmt.Errorf("insert token: %w", err)
	}
	t.ID = formatID(rec.ID)
	return nil
}

// FindByKey returns the token with its owner. Keys compare byte for byte.
func (r *TokenRepository) FindByKey(ctx context.Context, key string) (*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec tokenRecord
	err := r.db.WithContext(ctx).Preload("User").Where("token_key = ?", key).First(&rec).Error
	if err != nil {
		return nil, tokenLookupErr(err)
	}
	if rec.Key != key {
		return nil, domain.ErrTokenNotFound
	}
	return rec.toDomain(), nil
}

func (r *TokenRepository) FindByUser(ctx context.Context, userID string) (*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	uid, ok := parseID(userID)
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	var rec tokenRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", uid).Order(oldestFirst).First(&rec).Error
	if err != nil {
		return nil, tokenLookupErr(err)
	}
	return rec.toDomain(), nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	uid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	var recs []tokenRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", uid).Order(oldestFirst).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return toDomainTokens(recs), nil
}

func (r *TokenRepository) List(ctx context.Context) ([]*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var recs []tokenRecord
	if err := r.db.WithContext(ctx).Preload("User").Order(oldestFirst).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return toDomainTokens(recs), nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	uid, ok := parseID(userID)
	if !ok {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("user_id = ?", uid).Delete(&tokenRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func toDomainTokens(recs []tokenRecord) []*domain.Token {
	out := make([]*domain.Token, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out
}

func tokenLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrTokenNotFound
	}
	return fmt.Errorf("find token: %w", err)
}
