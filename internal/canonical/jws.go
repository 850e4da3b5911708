package canonical

import (
	"crypto/rsa"

	"github.com/capsara/client-go/internal/primitives"
)

// protectedHeader is the fixed JWS protected header for every Capsara
// signature. It is never varied, so it is a compile-time constant rather
// than a marshaled struct.
const protectedHeader = `{"alg":"RS256"}`

// Signature is the JWS triple recorded on a capsa: protected header, payload
// (the canonical string), and signature, each base64url-encoded.
type Signature struct {
	Protected string `json:"protected"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// signingInput returns `base64url(protected) || "." || base64url(payload)`,
// the exact bytes RS256 signs and verifies over.
func signingInput(canonicalString string) []byte {
	protectedB64 := primitives.ToBase64URL([]byte(protectedHeader))
	payloadB64 := primitives.ToBase64URL([]byte(canonicalString))
	return []byte(protectedB64 + "." + payloadB64)
}

// Sign builds the JWS triple over canonicalString using the creator's RSA
// private key.
func Sign(priv *rsa.PrivateKey, canonicalString string) (*Signature, error) {
	input := signingInput(canonicalString)
	sig, err := primitives.SignRS256(priv, input)
	if err != nil {
		return nil, err
	}

	return &Signature{
		Protected: primitives.ToBase64URL([]byte(protectedHeader)),
		Payload:   primitives.ToBase64URL([]byte(canonicalString)),
		Signature: primitives.ToBase64URL(sig),
	}, nil
}

// Verify checks that sig.Signature is a valid RS256 signature over
// sig.Protected and sig.Payload under pub, and that the decoded payload
// matches expectedCanonicalString byte-for-byte. Rebuilding and comparing
// the canonical string independently — rather than trusting the payload the
// signature carries — is what makes tampering with any field detectable:
// an attacker who also rewrites the embedded payload to match their
// tampered data still fails the signature check, and one who leaves the
// payload alone fails the comparison.
func Verify(pub *rsa.PublicKey, sig *Signature, expectedCanonicalString string) error {
	protectedBytes, err := primitives.FromBase64URL(sig.Protected)
	if err != nil {
		return primitives.ErrSignatureInvalid
	}
	if string(protectedBytes) != protectedHeader {
		return primitives.ErrSignatureInvalid
	}

	payloadBytes, err := primitives.FromBase64URL(sig.Payload)
	if err != nil {
		return primitives.ErrSignatureInvalid
	}
	if string(payloadBytes) != expectedCanonicalString {
		return primitives.ErrSignatureInvalid
	}

	sigBytes, err := primitives.FromBase64URL(sig.Signature)
	if err != nil {
		return primitives.ErrSignatureInvalid
	}

	input := []byte(sig.Protected + "." + sig.Payload)
	return primitives.VerifyRS256(pub, input, sigBytes)
}
