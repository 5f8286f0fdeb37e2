package service

import "testing"

func TestVerifyVaultPassword(t *testing.T) {
	hash, err := HashVaultPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !VerifyVaultPassword("correct horse", hash) {
		t.Fatal("correct password rejected")
	}
	if VerifyVaultPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestVerifyVaultPasswordMalformedHash(t *testing.T) {
	// A broken stored hash is a verification failure, never a panic.
	if VerifyVaultPassword("anything", "not-a-bcrypt-hash") {
		t.Fatal("malformed hash accepted")
	}
	if VerifyVaultPassword("anything", "") {
		t.Fatal("empty hash accepted")
	}
}
