package capsara

import (
	"crypto/rsa"
	"encoding/json"
	"sync"

	"github.com/capsara/client-go/internal/canonical"
	"github.com/capsara/client-go/internal/primitives"
)

// DecryptedCapsa is the result of a successful decrypt: plaintext subject,
// body, and structured content, plus everything needed to later decrypt
// individual files on demand via DownloadFile.
type DecryptedCapsa struct {
	PackageID  string
	Subject    string
	Body       string
	Structured map[string]interface{}
	Files      []EncryptedFile

	masterKey *primitives.SecureBytes
}

// Close wipes the decrypted capsa's master key. Safe to call multiple
// times.
func (d *DecryptedCapsa) Close() {
	d.masterKey.Wipe()
}

// DownloadFile decrypts one file's content given its ciphertext (fetched
// separately from blob storage, per spec §1's external-collaborator
// boundary) and the file's record. It decompresses the result if the
// record's Compressed flag is set.
func (d *DecryptedCapsa) DownloadFile(file EncryptedFile, ciphertext []byte) ([]byte, string, error) {
	contentIV, err := primitives.FromBase64URL(file.ContentIV)
	if err != nil {
		return nil, "", wrapError(KindValidation, "invalid content iv encoding", err)
	}
	contentTag, err := primitives.FromBase64URL(file.ContentTag)
	if err != nil {
		return nil, "", wrapError(KindValidation, "invalid content tag encoding", err)
	}
	plaintext, err := primitives.DecryptAESGCM(d.masterKey.Bytes(), contentIV, ciphertext, contentTag)
	if err != nil {
		return nil, "", wrapError(KindCryptoFailure, "file content decryption failed", ErrFieldTampered)
	}
	if file.Compressed {
		plaintext, err = primitives.Decompress(plaintext)
		if err != nil {
			return nil, "", wrapError(KindCryptoFailure, "decompression failed", err)
		}
	}

	filenameCiphertext, err := primitives.FromBase64URL(file.EncryptedFilename)
	if err != nil {
		return nil, "", wrapError(KindValidation, "invalid filename encoding", err)
	}
	filenameIV, err := primitives.FromBase64URL(file.FilenameIV)
	if err != nil {
		return nil, "", wrapError(KindValidation, "invalid filename iv encoding", err)
	}
	filenameTag, err := primitives.FromBase64URL(file.FilenameTag)
	if err != nil {
		return nil, "", wrapError(KindValidation, "invalid filename tag encoding", err)
	}
	filenameBytes, err := primitives.DecryptAESGCM(d.masterKey.Bytes(), filenameIV, filenameCiphertext, filenameTag)
	if err != nil {
		return nil, "", wrapError(KindCryptoFailure, "filename decryption failed", ErrFieldTampered)
	}

	return plaintext, string(filenameBytes), nil
}

// CapsaDecryptor implements the receive-side pipeline (spec §4.5): locate
// the caller's keychain entry, unwrap the master key, optionally verify the
// signature, and decrypt the subject/body/structured fields.
type CapsaDecryptor struct {
	VerifySignature bool

	mu       sync.Mutex
	inflight map[string]*inflightUnwrap
}

type inflightUnwrap struct {
	done      chan struct{}
	masterKey []byte
	err       error
}

// NewDecryptor returns a decryptor with signature verification enabled by
// default (spec §4.5: "optionally the creator's public key ... opt-in
// default on").
func NewDecryptor() *CapsaDecryptor {
	return &CapsaDecryptor{VerifySignature: true, inflight: make(map[string]*inflightUnwrap)}
}

// Decrypt runs the full receive-side pipeline for payload using privateKey.
// creatorPublicKey is required when VerifySignature is true. Concurrent
// calls for the same payload.PackageID and the same private key deduplicate
// their RSA-OAEP unwrap (spec §9 "concurrent decrypt deduplication",
// §8 Scenario S5): only one unwrap happens at a time; every caller still
// receives an independent, owned copy of the master key.
func (d *CapsaDecryptor) Decrypt(payload CapsaUploadData, privateKey *rsa.PrivateKey, creatorPublicKey *rsa.PublicKey) (*DecryptedCapsa, error) {
	fingerprint, err := primitives.FingerprintPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "failed to fingerprint caller key", err)
	}

	entry, err := locateEntry(payload.Keychain, fingerprint)
	if err != nil {
		return nil, err
	}
	if entry.Revoked {
		return nil, wrapError(KindValidation, "access revoked for this party", ErrAccessRevoked)
	}

	masterKeyRaw, err := d.unwrapDeduplicated(payload.PackageID+":"+fingerprint, entry, privateKey)
	if err != nil {
		return nil, err
	}
	masterKey := primitives.NewSecureBytes(masterKeyRaw)

	if d.VerifySignature {
		if creatorPublicKey == nil {
			masterKey.Wipe()
			return nil, newError(KindValidation, "creator public key required when VerifySignature is enabled")
		}
		if err := verifyPayloadSignature(payload, creatorPublicKey); err != nil {
			masterKey.Wipe()
			return nil, wrapError(KindCryptoFailure, "signature verification failed", ErrSignatureInvalid)
		}
	}

	subject, err := decryptOptionalField(payload.Subject, masterKey.Bytes())
	if err != nil {
		masterKey.Wipe()
		return nil, err
	}
	body, err := decryptOptionalField(payload.Body, masterKey.Bytes())
	if err != nil {
		masterKey.Wipe()
		return nil, err
	}
	structured, err := decryptStructuredField(payload.Structured, masterKey.Bytes())
	if err != nil {
		masterKey.Wipe()
		return nil, err
	}

	return &DecryptedCapsa{
		PackageID:  payload.PackageID,
		Subject:    subject,
		Body:       body,
		Structured: structured,
		Files:      payload.Files,
		masterKey:  masterKey,
	}, nil
}

// unwrapDeduplicated ensures at most one RSA-OAEP unwrap is in flight per
// key. Losing callers wait on the winner's result and receive their own
// copy; they never share the winner's backing array.
func (d *CapsaDecryptor) unwrapDeduplicated(key string, entry KeychainEntry, privateKey *rsa.PrivateKey) ([]byte, error) {
	d.mu.Lock()
	if existing, ok := d.inflight[key]; ok {
		d.mu.Unlock()
		<-existing.done
		if existing.err != nil {
			return nil, existing.err
		}
		return copyBytes(existing.masterKey), nil
	}

	call := &inflightUnwrap{done: make(chan struct{})}
	d.inflight[key] = call
	d.mu.Unlock()

	masterKey, err := unwrapEntry(entry, privateKey)

	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()

	call.masterKey = masterKey
	call.err = err
	close(call.done)

	if err != nil {
		return nil, err
	}
	return copyBytes(masterKey), nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func unwrapEntry(entry KeychainEntry, privateKey *rsa.PrivateKey) ([]byte, error) {
	if entry.WrappedKey == "" {
		return nil, wrapError(KindValidation, "keychain entry has no wrapped key for this party", ErrNoMatchingEntry)
	}
	wrapped, err := primitives.FromBase64URL(entry.WrappedKey)
	if err != nil {
		return nil, wrapError(KindValidation, "invalid wrapped key encoding", err)
	}
	masterKey, err := primitives.UnwrapMasterKey(privateKey, wrapped)
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "master key unwrap failed", ErrUnwrapFailed)
	}
	return masterKey, nil
}

// locateEntry selects the keychain entry matching fingerprint, preferring a
// direct (non-delegate) entry over a delegate entry when both exist
// (spec §4.5 step 1).
func locateEntry(entries []KeychainEntry, fingerprint string) (KeychainEntry, error) {
	var delegateMatch *KeychainEntry
	for i := range entries {
		e := entries[i]
		if e.Fingerprint != fingerprint {
			continue
		}
		if len(e.ActingFor) == 0 && !isDelegatePermissions(e.Permissions) {
			return e, nil
		}
		if delegateMatch == nil {
			delegateMatch = &e
		}
	}
	if delegateMatch != nil {
		return *delegateMatch, nil
	}
	return KeychainEntry{}, wrapError(KindValidation, "no keychain entry matches this key's fingerprint", ErrNoMatchingEntry)
}

func isDelegatePermissions(perms []string) bool {
	for _, p := range perms {
		if p == "delegate" {
			return true
		}
	}
	return false
}

func verifyPayloadSignature(payload CapsaUploadData, creatorPublicKey *rsa.PublicKey) error {
	canonFiles := make([]canonical.FileEntry, len(payload.Files))
	var totalSize int
	for i, f := range payload.Files {
		canonFiles[i] = canonical.FileEntry{
			FileID:        f.FileID,
			ContentHash:   f.ContentHash,
			CiphertextLen: int(f.CiphertextSize),
			ContentIV:     f.ContentIV,
			FilenameIV:    f.FilenameIV,
		}
		totalSize += int(f.CiphertextSize)
	}

	canonStr := canonical.Build(canonical.Input{
		PackageID:       payload.PackageID,
		TotalCiphertext: totalSize,
		Files:           canonFiles,
		StructuredIV:    ivOf(payload.Structured),
		SubjectIV:       ivOf(payload.Subject),
		BodyIV:          ivOf(payload.Body),
	})

	sig := &canonical.Signature{
		Protected: payload.Signature.Protected,
		Payload:   payload.Signature.Payload,
		Signature: payload.Signature.Signature,
	}
	return canonical.Verify(creatorPublicKey, sig, canonStr)
}

func ivOf(f *EncryptedField) string {
	if f == nil {
		return ""
	}
	return f.IV
}

func decryptOptionalField(f *EncryptedField, masterKey []byte) (string, error) {
	if f == nil {
		return "", nil
	}
	ciphertext, err := primitives.FromBase64URL(f.Ciphertext)
	if err != nil {
		return "", wrapError(KindValidation, "invalid field ciphertext encoding", err)
	}
	iv, err := primitives.FromBase64URL(f.IV)
	if err != nil {
		return "", wrapError(KindValidation, "invalid field iv encoding", err)
	}
	tag, err := primitives.FromBase64URL(f.Tag)
	if err != nil {
		return "", wrapError(KindValidation, "invalid field tag encoding", err)
	}
	plaintext, err := primitives.DecryptAESGCM(masterKey, iv, ciphertext, tag)
	if err != nil {
		return "", wrapError(KindCryptoFailure, "field decryption failed", ErrFieldTampered)
	}
	return string(plaintext), nil
}

func decryptStructuredField(f *EncryptedField, masterKey []byte) (map[string]interface{}, error) {
	if f == nil {
		return nil, nil
	}
	raw, err := decryptOptionalField(f, masterKey)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, wrapError(KindValidation, "structured content is not valid JSON", err)
	}
	return m, nil
}
