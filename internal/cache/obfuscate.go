package cache

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/capsara/client-go/internal/primitives"
)

// hkdfInfo domain-separates the cache's at-rest mask from any other HKDF use
// in the module.
const hkdfInfo = "capsara:cache:v1"

// saltSize is the size, in bytes, of each entry's per-entry HKDF salt.
const saltSize = 16

// mask derives a one-time pad of length n from the cache's process-local
// pepper and an entry's salt. This is not a substitute for the AES-GCM
// confidentiality the master key already has in transit and on the wire; it
// exists only so a master key never sits in the cache's map values as a
// contiguous plaintext copy waiting to be found by a casual heap scan. Each
// salt is wiped with the entry that uses it; the pepper is not wiped and
// lives as long as the Cache.
func mask(pepper, salt []byte, n int) ([]byte, error) {
	reader := hkdf.New(sha256.New, pepper, salt, []byte(hkdfInfo))
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("derive cache mask: %w", err)
	}
	return out, nil
}

// xorInto returns a fresh buffer containing a XOR b, for equal-length a, b.
func xorInto(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func newPepper() ([]byte, error) {
	return primitives.RandomBytes(32)
}

func newSalt() ([]byte, error) {
	return primitives.RandomBytes(saltSize)
}
