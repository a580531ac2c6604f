package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenHashLength is the length of a hex encoded SHA-256 digest.
const TokenHashLength = 64

// HashToken returns the lowercase hex SHA-256 digest of a plaintext token.
// The issuer computes the same digest before registration.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func ValidTokenHash(tokenHash string) bool {
	if len(tokenHash) != TokenHashLength {
		return false
	}
	for i := 0; i < len(tokenHash); i++ {
		c := tokenHash[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
