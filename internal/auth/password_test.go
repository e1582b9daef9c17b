package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService returns a PasswordService with the minimum bcrypt
// cost so tests run in milliseconds instead of ~250ms each.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_ReturnsNonEmptyHash(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("my-secret-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Error("Hash() returned empty string")
	}
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt hashes always start with $2a$ or $2b$
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	// bcrypt salts each hash, so two hashes of the same password differ.
	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_RejectsPasswordOver72Bytes(t *testing.T) {
	ps := newTestPasswordService()

	longPassword := strings.Repeat("a", 73)
	if _, err := ps.Hash(longPassword); err == nil {
		t.Fatal("Hash() should return an error for passwords longer than 72 bytes")
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_CorrectPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "wrong password"); err == nil {
		t.Error("Verify() should fail for a wrong password")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	ps := newTestPasswordService()

	if err := ps.Verify("not-a-bcrypt-hash", "anything"); err == nil {
		t.Error("Verify() should fail for a malformed hash")
	}
}
