package domain

import (
	"errors"
	"time"
)

// TokenKeyLength is the length of a hex-encoded token key (20 random bytes).
const TokenKeyLength = 40

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrDuplicateToken = errors.New("token already exists")
	ErrTokenConflict  = errors.New("token creation kept conflicting")
)

// Token is an opaque bearer credential that lets its holder act as UserID.
//
// User is only populated by lookups that join the owner.
type Token struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	UserID    string    `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
