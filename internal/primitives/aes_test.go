package primitives

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptAESGCM_DecryptAESGCM_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello world")},
		{"json", []byte(`{"foo": "bar", "num": 123}`)},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}},
		{"large", make([]byte, 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewMasterKey()
			if err != nil {
				t.Fatal(err)
			}
			iv, err := NewIV()
			if err != nil {
				t.Fatal(err)
			}

			ciphertext, tag, err := EncryptAESGCM(key, iv, tt.plaintext)
			if err != nil {
				t.Fatalf("EncryptAESGCM() error = %v", err)
			}
			if len(ciphertext) != len(tt.plaintext) {
				t.Errorf("ciphertext length = %d, want %d", len(ciphertext), len(tt.plaintext))
			}
			if len(tag) != AESTagSize {
				t.Errorf("tag length = %d, want %d", len(tag), AESTagSize)
			}

			plaintext, err := DecryptAESGCM(key, iv, ciphertext, tag)
			if err != nil {
				t.Fatalf("DecryptAESGCM() error = %v", err)
			}
			if !bytes.Equal(plaintext, tt.plaintext) {
				t.Errorf("plaintext = %v, want %v", plaintext, tt.plaintext)
			}
		})
	}
}

func TestEncryptAESGCM_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"empty", 0},
		{"too short", 16},
		{"too long", 64},
	}

	iv := make([]byte, AESIVSize)
	plaintext := []byte("test")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, tt.keySize)
			_, _, err := EncryptAESGCM(key, iv, plaintext)
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("error = %v, want ErrInvalidKeySize", err)
			}
		})
	}
}

func TestEncryptAESGCM_InvalidIVSize(t *testing.T) {
	key, err := NewMasterKey()
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = EncryptAESGCM(key, make([]byte, 8), []byte("test"))
	if !errors.Is(err, ErrInvalidIVSize) {
		t.Errorf("error = %v, want ErrInvalidIVSize", err)
	}
}

func TestDecryptAESGCM_TamperedTag(t *testing.T) {
	key, _ := NewMasterKey()
	iv, _ := NewIV()
	ciphertext, tag, err := EncryptAESGCM(key, iv, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	tag[0] ^= 0xFF
	if _, err := DecryptAESGCM(key, iv, ciphertext, tag); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("error = %v, want ErrDecryptionFailed", err)
	}
}

func TestDecryptAESGCM_TamperedCiphertext(t *testing.T) {
	key, _ := NewMasterKey()
	iv, _ := NewIV()
	ciphertext, tag, err := EncryptAESGCM(key, iv, []byte("secret data"))
	if err != nil {
		t.Fatal(err)
	}

	ciphertext[0] ^= 0xFF
	if _, err := DecryptAESGCM(key, iv, ciphertext, tag); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("error = %v, want ErrDecryptionFailed", err)
	}
}

func TestDecryptAESGCM_WrongKey(t *testing.T) {
	key, _ := NewMasterKey()
	other, _ := NewMasterKey()
	iv, _ := NewIV()
	ciphertext, tag, err := EncryptAESGCM(key, iv, []byte("secret data"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := DecryptAESGCM(other, iv, ciphertext, tag); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("error = %v, want ErrDecryptionFailed", err)
	}
}
