package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenLength is the length of a session token: 20 random bytes,
// hex-encoded.
const TokenLength = 40

// NewToken generates an opaque session token. The token carries no
// claims and no expiry — it is just a random key into the session
// store.
func NewToken() (string, error) {
	buf := make([]byte, TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
