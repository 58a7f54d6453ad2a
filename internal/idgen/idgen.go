package idgen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

const (
	publicAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	publicLen      = 8

	secretSeedBytes = 16
	secretHexLen    = 32
)

// PublicID returns a short operator-facing code: 8 characters drawn
// uniformly from A-Z0-9. Uniqueness is enforced by the storage layer;
// callers retry on conflict.
func PublicID() (string, error) {
	// Rejection sampling keeps the draw uniform: 252 is the largest
	// multiple of 36 below 256.
	const limit = 252
	out := make([]byte, 0, publicLen)
	buf := make([]byte, publicLen)
	for len(out) < publicLen {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "read random")
		}
		for _, b := range buf {
			if b >= limit || len(out) == publicLen {
				continue
			}
			out = append(out, publicAlphabet[int(b)%len(publicAlphabet)])
		}
	}
	return string(out), nil
}

// SecretID returns the capability token embedded in the scan URL:
// sha256 over 16 crypto-random bytes, truncated to 32 hex characters.
func SecretID() (string, error) {
	seed := make([]byte, secretSeedBytes)
	if _, err := rand.Read(seed); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:])[:secretHexLen], nil
}
