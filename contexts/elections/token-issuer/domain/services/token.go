package services

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	domainerrors "votecore/contexts/elections/token-issuer/domain/errors"
)

// TokenBytes is the amount of entropy in one voting token.
const TokenBytes = 32

// GenerateToken reads TokenBytes from source and encodes them as unpadded
// base64url.
func GenerateToken(source io.Reader) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(source, buf); err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken must stay byte-for-byte identical to the tally service's hash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VoterKey derives the issuance ledger key from a voter subject.
func VoterKey(subject string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(subject)))
	return hex.EncodeToString(sum[:])
}
