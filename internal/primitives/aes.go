package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// EncryptAESGCM encrypts plaintext under key with the given 12-byte iv using
// AES-256-GCM and no associated data. It returns the ciphertext and the
// 16-byte authentication tag as two distinct byte strings — per the wire
// format, they are never concatenated.
func EncryptAESGCM(key, iv, plaintext []byte) (ciphertext, tag []byte, err error) {
	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - AESTagSize
	return sealed[:split], sealed[split:], nil
}

// DecryptAESGCM decrypts ciphertext+tag under key with iv, reassembling the
// combined form AES-GCM expects internally. A tag mismatch returns
// ErrDecryptionFailed and no plaintext.
func DecryptAESGCM(key, iv, ciphertext, tag []byte) ([]byte, error) {
	if len(tag) != AESTagSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidTagSize, len(tag), AESTagSize)
	}

	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(iv) != AESIVSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIVSize, len(iv), AESIVSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
