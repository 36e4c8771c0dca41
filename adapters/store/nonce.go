package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// errAllocationFailed is returned when every allocation attempt collided
// with an outstanding nonce.
var errAllocationFailed = errors.New("nonce allocation failed: retries exhausted")

// nonceBytes is the entropy of an allocated nonce: 32 random bytes, well
// above the 128-bit floor that makes guessing infeasible.
const nonceBytes = 32

// allocateAttempts bounds collision retries during allocation. A collision
// between 256-bit values means the RNG is broken, so a handful of retries
// is already generous.
const allocateAttempts = 3

func newNonceValue() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading nonce entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
