package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewOpaqueToken returns a 256-bit random URL-safe token.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate opaque token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
