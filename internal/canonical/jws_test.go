package canonical

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/capsara/client-go/internal/primitives"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return key
}

func TestSignVerify_RoundTrip(t *testing.T) {
	priv := testKey(t)
	canonicalString := "capsa_abc|10|AES-256-GCM|"

	sig, err := Sign(priv, canonicalString)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if err := Verify(&priv.PublicKey, sig, canonicalString); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	priv := testKey(t)
	canonicalString := "capsa_abc|10|AES-256-GCM|"

	sig, err := Sign(priv, canonicalString)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := primitives.FromBase64URL(sig.Signature)
	if err != nil {
		t.Fatal(err)
	}
	raw[0] ^= 0xFF
	sig.Signature = primitives.ToBase64URL(raw)

	if err := Verify(&priv.PublicKey, sig, canonicalString); !errors.Is(err, primitives.ErrSignatureInvalid) {
		t.Errorf("error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerify_CanonicalStringMismatch(t *testing.T) {
	priv := testKey(t)
	sig, err := Sign(priv, "capsa_abc|10|AES-256-GCM|")
	if err != nil {
		t.Fatal(err)
	}

	if err := Verify(&priv.PublicKey, sig, "capsa_abc|11|AES-256-GCM|"); !errors.Is(err, primitives.ErrSignatureInvalid) {
		t.Errorf("error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	priv := testKey(t)
	other := testKey(t)
	canonicalString := "capsa_abc|10|AES-256-GCM|"

	sig, err := Sign(priv, canonicalString)
	if err != nil {
		t.Fatal(err)
	}

	if err := Verify(&other.PublicKey, sig, canonicalString); !errors.Is(err, primitives.ErrSignatureInvalid) {
		t.Errorf("error = %v, want ErrSignatureInvalid", err)
	}
}
