package primitives

import (
	"crypto/rand"
	"fmt"
	"io"
)

// randReader is the CSPRNG source for every IV, master key, and identifier body
// generated by this package. It is swappable only for tests.
var randReader io.Reader = rand.Reader

// SetRandReaderForTesting replaces the random source used by this package and
// returns a function that restores the original reader. Intended for tests only.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

// NewMasterKey generates a fresh 32-byte master key.
func NewMasterKey() ([]byte, error) {
	return RandomBytes(AESKeySize)
}

// NewIV generates a fresh 12-byte AES-GCM nonce.
func NewIV() ([]byte, error) {
	return RandomBytes(AESIVSize)
}
