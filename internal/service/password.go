package service

import "golang.org/x/crypto/bcrypt"

// HashVaultPassword hashes a vault password for storage.
func HashVaultPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyVaultPassword compares a submitted password against the stored
// bcrypt hash. Any comparison error, including a malformed hash, counts
// as a failed verification rather than propagating.
func VerifyVaultPassword(submitted, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(submitted)) == nil
}
