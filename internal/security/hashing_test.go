package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash([]byte("secret1"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "secret1" {
		t.Fatal("hash should be non-empty and not plaintext")
	}
	if err := h.Compare(hash, []byte("secret1")); err != nil {
		t.Errorf("Compare with correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Error("Compare with wrong password should fail")
	}
}

func TestHasher_DistinctHashes(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	h1, err := h.Hash([]byte("secret1"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash([]byte("secret1"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestNewHasher_CostClamping(t *testing.T) {
	if c := NewHasher(0).Cost; c != bcrypt.DefaultCost {
		t.Errorf("cost 0: got %d, want default %d", c, bcrypt.DefaultCost)
	}
	if c := NewHasher(1).Cost; c != bcrypt.MinCost {
		t.Errorf("cost 1: got %d, want min %d", c, bcrypt.MinCost)
	}
	if c := NewHasher(99).Cost; c != bcrypt.MaxCost {
		t.Errorf("cost 99: got %d, want max %d", c, bcrypt.MaxCost)
	}
}
