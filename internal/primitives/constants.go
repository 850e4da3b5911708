package primitives

const (
	// AESKeySize is the size of a master key / AES-256 key in bytes.
	AESKeySize = 32
	// AESIVSize is the size of an AES-GCM nonce/IV in bytes.
	AESIVSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// RSAKeyBits is the RSA modulus size, in bits, used for key wrapping and signing.
	RSAKeyBits = 4096

	// CompressionBreakEven is the minimum plaintext length, in bytes, below which
	// gzip is skipped outright (the gzip container overhead exceeds any savings).
	CompressionBreakEven = 150

	// IdentifierAlphabet is the 64-character URL-safe alphabet used for generated IDs.
	IdentifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	// PackageIDLength is the number of alphabet characters in a capsa package ID body.
	PackageIDLength = 22
	// FileIDLength is the number of alphabet characters in a file ID body.
	//
	// The spec's own sections disagree: §3 and §4.2 both specify 22 characters
	// for nested file IDs, while §6 says 16. We follow the majority (§3, §4.2)
	// and treat §6's "16" as a copy-paste of an unrelated identifier length.
	FileIDLength = 22
)
