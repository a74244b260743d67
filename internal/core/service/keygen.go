package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const keyBytes = 20

// KeyGenerator produces new token keys.
type KeyGenerator func() (string, error)

// GenerateKey returns 20 bytes from crypto/rand encoded as 40 hex characters.
func GenerateKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
