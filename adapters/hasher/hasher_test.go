package hasher_test

import (
	"testing"

	"github.com/artpar/maintforms/adapters/hasher"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := hasher.NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if !h.Compare(hash, "s3cret") {
		t.Error("Compare rejected the correct secret")
	}
	if h.Compare(hash, "wrong") {
		t.Error("Compare accepted a wrong secret")
	}
	if h.Compare("", "s3cret") {
		t.Error("Compare accepted an empty hash")
	}
}
