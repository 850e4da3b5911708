package primitives

import "errors"

var (
	// ErrInvalidKeySize is returned when an AES key is not exactly AESKeySize bytes.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidIVSize is returned when an IV/nonce is not exactly AESIVSize bytes.
	ErrInvalidIVSize = errors.New("invalid iv size")

	// ErrInvalidTagSize is returned when an authentication tag is not exactly AESTagSize bytes.
	ErrInvalidTagSize = errors.New("invalid tag size")

	// ErrDecryptionFailed is returned when AES-GCM authentication fails (tag mismatch).
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrSignatureInvalid is returned when an RS256 signature fails verification.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrUnwrapFailed is returned when RSA-OAEP unwrapping of a master key fails.
	ErrUnwrapFailed = errors.New("key unwrap failed")

	// ErrIVCollision reports a duplicate IV within a single capsa, which
	// indicates CSPRNG failure and is fatal. No function in this package
	// returns it; the builder's IV check reports capsara.ErrIVCollision.
	ErrIVCollision = errors.New("csprng failure: duplicate iv")
)
