package tokens

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// MinOpaqueBytes is 256 bits of entropy.
const MinOpaqueBytes = 32

// NewOpaqueToken reads n random bytes and returns them base64url encoded.
func NewOpaqueToken(r io.Reader, n int) (string, error) {
	if n < MinOpaqueBytes {
		return "", fmt.Errorf("opaque token needs at least %d bytes, got %d", MinOpaqueBytes, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest is the form opaque tokens are stored and looked up in.
func Digest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
