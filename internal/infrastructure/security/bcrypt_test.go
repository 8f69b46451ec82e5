package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Hash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Pass@word1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "Pass@word1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("Pass@word1")); err != nil {
		t.Fatalf("hash does not match password: %v", err)
	}
}

func TestBcryptHasher_RejectsEmpty(t *testing.T) {
	if _, err := NewBcryptHasher(0).Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	if h := NewBcryptHasher(99); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}
