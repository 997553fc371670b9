package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	secret := []byte("password123")
	digest, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" || digest == string(secret) {
		t.Fatalf("Hash returned %q", digest)
	}
	if err := h.Compare(digest, secret); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_SaltedPerCall(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, _ := h.Hash([]byte("same"))
	b, _ := h.Hash([]byte("same"))
	if a == b {
		t.Fatal("two hashes of the same secret should differ")
	}
}

func TestHasher_CompareWrongSecret(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	digest, _ := h.Hash([]byte("password123"))
	if err := h.Compare(digest, []byte("wrong")); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("Compare wrong secret: err = %v", err)
	}
	if err := h.Compare("not-a-digest", []byte("password123")); err == nil {
		t.Fatal("Compare with invalid digest should fail")
	}
}

func TestHasher_CompareDummyAlwaysMismatches(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, s := range []string{"", "dummy-secret-for-unknown-users", "password123"} {
		if err := h.CompareDummy([]byte(s)); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			t.Errorf("CompareDummy(%q) = %v, want mismatch", s, err)
		}
	}
}

func TestNewHasher_Cost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-1, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{40, bcrypt.MaxCost},
	}
	for _, tc := range tests {
		if got := NewHasher(tc.in).Cost; got != tc.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}
