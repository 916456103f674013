package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const stateBytes = 32

// NewState returns a 256-bit random, hex encoded OAuth state token.
func NewState() (string, error) {
	var b [stateBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// newID generates a random browser session id.
func newID() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
