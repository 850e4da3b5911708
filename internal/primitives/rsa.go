package primitives

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// WrapMasterKey RSA-OAEP-SHA256 encrypts a master key under a recipient's
// public key. Used only to wrap the 32-byte master key (§4.1).
func WrapMasterKey(pub *rsa.PublicKey, masterKey []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, masterKey, nil)
	if err != nil {
		return nil, fmt.Errorf("rsa-oaep wrap: %w", err)
	}
	return wrapped, nil
}

// UnwrapMasterKey RSA-OAEP-SHA256 decrypts a wrapped master key under a
// private key. Any failure (ciphertext corruption, wrong key) is reported as
// ErrUnwrapFailed without further detail, since an attacker-distinguishable
// error here is a padding-oracle risk.
func UnwrapMasterKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}
	return key, nil
}

// SignRS256 produces an RSA PKCS#1 v1.5 signature over the SHA-256 digest of
// signingInput, the JWS signing input `base64url(protected) || "." ||
// base64url(payload)`.
func SignRS256(priv *rsa.PrivateKey, signingInput []byte) ([]byte, error) {
	digest := sha256.Sum256(signingInput)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("rs256 sign: %w", err)
	}
	return sig, nil
}

// VerifyRS256 verifies an RSA PKCS#1 v1.5 signature over the SHA-256 digest
// of signingInput. Returns ErrSignatureInvalid on any mismatch.
func VerifyRS256(pub *rsa.PublicKey, signingInput, sig []byte) error {
	digest := sha256.Sum256(signingInput)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

// FingerprintPublicKey returns the SHA-256 hex fingerprint of a public key's
// PEM encoding, exactly as it is transmitted on the wire.
func FingerprintPublicKey(pub *rsa.PublicKey) (string, error) {
	pemBytes, err := PublicKeyToPEM(pub)
	if err != nil {
		return "", err
	}
	return SHA256Hex(pemBytes), nil
}

// PublicKeyToPEM encodes pub as a PKIX PEM block, the exact byte form whose
// SHA-256 hash is the key's fingerprint.
func PublicKeyToPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// PublicKeyFromPEM decodes a PKIX PEM-encoded RSA public key.
func PublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}
