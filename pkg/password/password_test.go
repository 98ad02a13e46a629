package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if digest == "correct horse battery staple" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !h.Verify("correct horse battery staple", digest) {
		t.Error("Verify rejected the original password")
	}
	if h.Verify("wrong password", digest) {
		t.Error("Verify accepted a wrong password")
	}
}

func TestHashProducesDistinctDigests(t *testing.T) {
	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	d1, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d2, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	// Each digest carries its own random salt.
	if d1 == d2 {
		t.Error("two hashes of the same password produced identical digests")
	}
	if !h.Verify("same input", d1) || !h.Verify("same input", d2) {
		t.Error("Verify rejected one of the digests")
	}
}

func TestHashUnicodePassword(t *testing.T) {
	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	digest, err := h.Hash("pæsswörd-日本語")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("pæsswörd-日本語", digest) {
		t.Error("Verify rejected the unicode password")
	}
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	// bcrypt only consumes 72 bytes of input.
	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("expected an error for a password longer than 72 bytes")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	if h.Verify("anything", "not-a-bcrypt-digest") {
		t.Error("Verify accepted a malformed digest")
	}
	if h.Verify("anything", "") {
		t.Error("Verify accepted an empty digest")
	}
}

func TestNewBcryptCostValidation(t *testing.T) {
	if _, err := NewBcrypt(Config{Cost: 99}); err == nil {
		t.Error("expected an error for an out-of-range cost")
	}

	h, err := NewBcrypt(Config{})
	if err != nil {
		t.Fatalf("NewBcrypt with zero cost: %v", err)
	}
	digest, err := h.Hash("defaults")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("zero cost should fall back to the library default, got %d", cost)
	}
}
