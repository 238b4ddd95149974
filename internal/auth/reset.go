package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// ResetTokenLength is the number of random bytes in a reset secret.
const ResetTokenLength = 32

// GenerateResetToken produces a one-time reset secret and the SHA-256 hash
// that gets persisted. The plaintext is returned exactly once; only the hash
// ever touches storage.
func GenerateResetToken() (token string, hash string, err error) {
	buf := make([]byte, ResetTokenLength)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	token = hex.EncodeToString(buf)
	return token, HashResetToken(token), nil
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
