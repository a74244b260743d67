package sqldb

import (
	"strconv"
	"time"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

type userRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:255;not null"`
	Email        string `gorm:"uniqueIndex;size:191;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:32;not null;default:CUSTOMER"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           formatID(r.ID),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// tokenRecord stores the key in token_key since KEY is reserved in MySQL.
type tokenRecord struct {
	ID        uint       `gorm:"primaryKey"`
	Key       string     `gorm:"column:token_key;uniqueIndex;size:64;not null"`
	UserID    uint       `gorm:"uniqueIndex;not null"`
	User      userRecord `gorm:"constraint:OnDelete:CASCADE"`
	Active    bool       `gorm:"not null;default:true"`
	CreatedAt time.Time  `gorm:"index"`
	UpdatedAt time.Time
}

func (tokenRecord) TableName() string { return "auth_tokens" }

func (r *tokenRecord) toDomain() *domain.Token {
	t := &domain.Token{
		ID:        formatID(r.ID),
		Key:       r.Key,
		UserID:    formatID(r.UserID),
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.User.ID != 0 {
		t.User = r.User.toDomain()
	}
	return t
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
