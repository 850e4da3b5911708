// Package primitives provides thin, fixed-parameter wrappers over the
// standard cryptographic algorithms Capsara uses.
//
// # Algorithm suite
//
//   - AES-256-GCM: symmetric encryption of file contents, filenames, and
//     message fields under a capsa's master key. No associated data.
//   - RSA-4096-OAEP-SHA256: wraps the 32-byte master key per recipient.
//   - RSA-PKCS#1v1.5-SHA256 (RS256): signs the canonical string.
//   - SHA-256: ciphertext integrity hashes and public-key fingerprints.
//   - gzip: optional pre-encryption compression.
//
// Every IV is 12 bytes, every AES key 32 bytes, every GCM tag 16 bytes.
// Ciphertext and tag are always handled as distinct byte strings; nothing in
// this package concatenates them for storage or transmission.
package primitives
