package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("abc")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "abc" {
		t.Fatalf("expected password to be hashed")
	}
	if !h.Verify(hash, "abc") {
		t.Fatalf("expected matching password to verify")
	}
	if h.Verify(hash, "ABC") {
		t.Fatalf("expected wrong password to fail")
	}
	if h.Verify(hash, "") {
		t.Fatalf("expected empty password to fail")
	}
}

func TestBcryptHasher_CostOutOfRange(t *testing.T) {
	if h := NewBcryptHasher(0); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
	if h := NewBcryptHasher(bcrypt.MaxCost + 1); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}

func TestBcryptHasher_VerifyGarbageHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	if h.Verify("not-a-hash", "abc") {
		t.Fatalf("expected garbage hash to fail verification")
	}
}
