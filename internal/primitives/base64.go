package primitives

import "encoding/base64"

// ToBase64URL encodes data as unpadded, URL-safe base64 (RFC 4648 §5). Every
// binary value on the Capsara wire format — keys, IVs, tags, ciphertexts,
// signatures — uses this single encoding.
func ToBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// FromBase64URL decodes unpadded, URL-safe base64 (RFC 4648 §5).
func FromBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
