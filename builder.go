package capsara

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"time"

	"github.com/capsara/client-go/internal/canonical"
	"github.com/capsara/client-go/internal/keychain"
	"github.com/capsara/client-go/internal/primitives"
)

// PartyKey is the public form of a candidate key holder supplied to
// AddPartyKeys, wrapping keychain.PartyKey's shape without exposing the
// internal package.
type PartyKey struct {
	PartyID   string
	PublicKey *rsa.PublicKey
	// ActingFor is non-nil for a delegate entry (possibly empty, meaning
	// "delegate of unspecified parties").
	ActingFor []string
}

// Recipient declares one authorized direct recipient (spec §4.3).
type Recipient struct {
	PartyID     string
	Permissions []string
	// Delegated marks a recipient represented only through a delegate; see
	// keychain.Recipient.Delegated.
	Delegated bool
}

type structuredField struct {
	key   string
	value interface{}
}

// CapsaBuilder accumulates a capsa's content and produces a signed,
// encrypted CapsaUploadData via Build. A builder is single-use: Build
// consumes it, wiping its master key on return whether or not the caller
// retains the builder afterward.
type CapsaBuilder struct {
	limits Limits

	creatorID  string
	creatorKey *rsa.PrivateKey

	subject    string
	body       string
	structured []structuredField
	expiresAt  *time.Time

	files      []fileInput
	recipients []Recipient
	partyKeys  []PartyKey

	metadata *UnencryptedMetadata

	disableCompression bool
	disposed           bool
}

// NewBuilder creates an empty builder for a capsa created by creatorID,
// signed with creatorPrivateKey.
func NewBuilder(creatorID string, creatorPrivateKey *rsa.PrivateKey, limits Limits) *CapsaBuilder {
	return &CapsaBuilder{
		limits:     limits,
		creatorID:  creatorID,
		creatorKey: creatorPrivateKey,
	}
}

// DisableCompression turns off gzip pre-compression for this builder. By
// default compression is attempted per file and kept only when it strictly
// reduces size (spec §4.3.c).
func (b *CapsaBuilder) DisableCompression() {
	b.disableCompression = true
}

func (b *CapsaBuilder) checkDisposed() error {
	if b.disposed {
		return wrapError(KindDisposed, "builder has already been consumed by Build", ErrDisposed)
	}
	return nil
}

// SetSubject sets the capsa's plaintext subject (encrypted at Build time).
func (b *CapsaBuilder) SetSubject(subject string) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	if len(subject) > b.limits.MaxEncryptedSubject {
		return newFieldError(KindValidation, "subject", "subject too long", int64(b.limits.MaxEncryptedSubject))
	}
	b.subject = subject
	return nil
}

// SetBody sets the capsa's plaintext body.
func (b *CapsaBuilder) SetBody(body string) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	if len(body) > b.limits.MaxEncryptedBody {
		return newFieldError(KindValidation, "body", "body too long", int64(b.limits.MaxEncryptedBody))
	}
	b.body = body
	return nil
}

// SetExpiration sets the capsa's expiration, truncated to minute
// granularity (spec §4.3).
func (b *CapsaBuilder) SetExpiration(t time.Time) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	truncated := t.Truncate(time.Minute)
	b.expiresAt = &truncated
	return nil
}

// AddStructured adds one key/value pair to the capsa's structured content,
// serialized to JSON as a whole at Build time.
func (b *CapsaBuilder) AddStructured(key string, value interface{}) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	b.structured = append(b.structured, structuredField{key: key, value: value})
	return nil
}

// SetUnencryptedMetadata sets the capsa's server-visible metadata.
func (b *CapsaBuilder) SetUnencryptedMetadata(meta UnencryptedMetadata) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	if len(meta.Label) > b.limits.MaxLabelLength {
		return newFieldError(KindValidation, "metadata.label", "label too long", int64(b.limits.MaxLabelLength))
	}
	if len(meta.Tags) > b.limits.MaxTags {
		return newFieldError(KindValidation, "metadata.tags", "too many tags", int64(b.limits.MaxTags))
	}
	for _, tag := range meta.Tags {
		if len(tag) > b.limits.MaxTagLength {
			return newFieldError(KindValidation, "metadata.tags[]", "tag too long", int64(b.limits.MaxTagLength))
		}
	}
	if len(meta.Notes) > b.limits.MaxNotesLength {
		return newFieldError(KindValidation, "metadata.notes", "notes too long", int64(b.limits.MaxNotesLength))
	}
	if len(meta.RelatedPackages) > b.limits.MaxRelatedPackages {
		return newFieldError(KindValidation, "metadata.relatedPackages", "too many related packages", int64(b.limits.MaxRelatedPackages))
	}
	b.metadata = &meta
	return nil
}

// AddFile adds a file to the capsa. f is produced by FileFromPath,
// FileFromBytes, or FileFromStream.
func (b *CapsaBuilder) AddFile(f fileInput) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	if f.size > b.limits.MaxFileSize {
		return newFieldError(KindValidation, "file", "file exceeds per-file size limit", b.limits.MaxFileSize)
	}
	var total int64
	for _, existing := range b.files {
		total += existing.size
	}
	if total+f.size > b.limits.MaxTotalSize {
		return newFieldError(KindValidation, "files", "total file size exceeds limit", b.limits.MaxTotalSize)
	}
	if len(f.filename) == 0 {
		return newError(KindValidation, "file must have a non-empty name")
	}
	b.files = append(b.files, f)
	return nil
}

// AddRecipient authorizes one party to decrypt this capsa.
func (b *CapsaBuilder) AddRecipient(r Recipient) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	if r.PartyID == "" || len(r.PartyID) > b.limits.MaxPartyIDLength {
		return newFieldError(KindValidation, "recipient.partyId", "party ID empty or too long", int64(b.limits.MaxPartyIDLength))
	}
	if len(b.recipients)+1 /* this recipient */ +1 /* creator */ > b.limits.MaxKeychainSize {
		return wrapError(KindValidation, "adding recipient would exceed keychain size", ErrKeychainFull)
	}
	b.recipients = append(b.recipients, r)
	return nil
}

// AddPartyKeys supplies the full candidate key-holder list (creator,
// recipients, delegates) consulted during keychain assembly (spec §4.3
// step 5). Call once; later calls append to the existing list.
func (b *CapsaBuilder) AddPartyKeys(keys ...PartyKey) error {
	if err := b.checkDisposed(); err != nil {
		return err
	}
	for _, k := range keys {
		if k.ActingFor != nil && len(k.ActingFor) > b.limits.MaxActingFor {
			return wrapError(KindValidation, "delegate acts for too many parties", ErrTooManyActingFor)
		}
	}
	b.partyKeys = append(b.partyKeys, keys...)
	return nil
}

// builtFile pairs an EncryptedFile wire record with its ciphertext bytes,
// per spec §4.3 step 8.
type builtFile struct {
	Record     EncryptedFile
	Ciphertext []byte
}

// BuildResult is the output of Build: the wire payload, every file's
// ciphertext bytes (in the same order as Payload.Files), and an owned copy
// of the master key used to encrypt it all, for a sender who wants to cache
// it (e.g. via Client.Send) without re-deriving it through a keychain
// unwrap of their own entry.
type BuildResult struct {
	Payload   CapsaUploadData
	Files     []builtFile
	MasterKey *primitives.SecureBytes
}

// Build runs the full deterministic build algorithm (spec §4.3 steps 1–8)
// and consumes the builder: after Build returns (success or failure) the
// builder's master key has been wiped and further calls return a disposed
// error.
func (b *CapsaBuilder) Build() (*BuildResult, error) {
	if err := b.checkDisposed(); err != nil {
		return nil, err
	}
	defer func() { b.disposed = true }()

	if len(b.files) == 0 && b.subject == "" && b.body == "" {
		return nil, wrapError(KindValidation, "empty capsa", ErrEmptyCapsa)
	}

	masterKeyRaw, err := primitives.NewMasterKey()
	if err != nil {
		return nil, wrapError(KindCSPRNGFailure, "failed to generate master key", err)
	}
	masterKey := primitives.NewSecureBytes(masterKeyRaw)
	defer masterKey.Wipe()

	packageID, err := primitives.PackageID()
	if err != nil {
		return nil, wrapError(KindCSPRNGFailure, "failed to generate package id", err)
	}

	files, canonFiles, totalSize, err := b.buildFiles(masterKey.Bytes())
	if err != nil {
		return nil, err
	}

	subjectField, subjectIV, err := b.encryptOptionalField("subject", b.subject, masterKey.Bytes(), b.limits.MaxEncryptedSubject)
	if err != nil {
		return nil, err
	}
	bodyField, bodyIV, err := b.encryptOptionalField("body", b.body, masterKey.Bytes(), b.limits.MaxEncryptedBody)
	if err != nil {
		return nil, err
	}
	structuredField, structuredIV, err := b.encryptStructured(masterKey.Bytes())
	if err != nil {
		return nil, err
	}

	keychainEntries, err := b.assembleKeychain(masterKey.Bytes())
	if err != nil {
		return nil, err
	}

	canonStr := canonical.Build(canonical.Input{
		PackageID:       packageID,
		TotalCiphertext: totalSize,
		Files:           canonFiles,
		StructuredIV:    structuredIV,
		SubjectIV:       subjectIV,
		BodyIV:          bodyIV,
	})
	if len(canonStr) > b.limits.MaxSignaturePayload {
		return nil, newFieldError(KindValidation, "signature.payload", "canonical string too long", int64(b.limits.MaxSignaturePayload))
	}

	sig, err := canonical.Sign(b.creatorKey, canonStr)
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "failed to sign capsa", err)
	}

	if err := verifyIVUniqueness(files, keychainEntries, subjectIV, bodyIV, structuredIV); err != nil {
		return nil, err
	}

	payload := CapsaUploadData{
		PackageID:        packageID,
		Keychain:         keychainEntries,
		Signature:        Signature{Protected: sig.Protected, Payload: sig.Payload, Signature: sig.Signature},
		ExpiresAt:        b.expiresAt,
		DeliveryPriority: "normal",
		Files:            recordsOf(files),
		Subject:          subjectField,
		Body:             bodyField,
		Structured:       structuredField,
		Metadata:         b.metadata,
	}

	return &BuildResult{Payload: payload, Files: files, MasterKey: masterKey.Copy()}, nil
}

func recordsOf(files []builtFile) []EncryptedFile {
	out := make([]EncryptedFile, len(files))
	for i, f := range files {
		out[i] = f.Record
	}
	return out
}

func (b *CapsaBuilder) buildFiles(masterKey []byte) ([]builtFile, []canonical.FileEntry, int, error) {
	var files []builtFile
	var canonFiles []canonical.FileEntry
	var totalSize int

	for _, f := range b.files {
		data, err := f.read()
		if err != nil {
			return nil, nil, 0, err
		}

		plaintext := data
		compressed := false
		var compressAlgo string
		var originalSize int64
		if !b.disableCompression {
			out, didCompress, cerr := primitives.MaybeCompress(data)
			if cerr != nil {
				return nil, nil, 0, wrapError(KindCryptoFailure, "compression failed", cerr)
			}
			if didCompress {
				plaintext = out
				compressed = true
				compressAlgo = "gzip"
				originalSize = int64(len(data))
			}
		}

		contentIV, err := primitives.NewIV()
		if err != nil {
			return nil, nil, 0, wrapError(KindCSPRNGFailure, "failed to generate content iv", err)
		}
		ciphertext, tag, err := primitives.EncryptAESGCM(masterKey, contentIV, plaintext)
		if err != nil {
			return nil, nil, 0, wrapError(KindCryptoFailure, "file content encryption failed", err)
		}
		contentHash := primitives.SHA256Hex(ciphertext)

		filenameIV, err := primitives.NewIV()
		if err != nil {
			return nil, nil, 0, wrapError(KindCSPRNGFailure, "failed to generate filename iv", err)
		}
		filenameCiphertext, filenameTag, err := primitives.EncryptAESGCM(masterKey, filenameIV, []byte(f.filename))
		if err != nil {
			return nil, nil, 0, wrapError(KindCryptoFailure, "filename encryption failed", err)
		}
		encodedFilename := primitives.ToBase64URL(filenameCiphertext)
		if len(encodedFilename) > b.limits.MaxEncryptedFilename {
			return nil, nil, 0, newFieldError(KindValidation, "file.encryptedFilename", "encrypted filename too long", int64(b.limits.MaxEncryptedFilename))
		}

		fileID, err := primitives.FileID()
		if err != nil {
			return nil, nil, 0, wrapError(KindCSPRNGFailure, "failed to generate file id", err)
		}

		record := EncryptedFile{
			FileID:               fileID,
			EncryptedFilename:    encodedFilename,
			FilenameIV:           primitives.ToBase64URL(filenameIV),
			FilenameTag:          primitives.ToBase64URL(filenameTag),
			ContentIV:            primitives.ToBase64URL(contentIV),
			ContentTag:           primitives.ToBase64URL(tag),
			MIMEType:             detectMIMEType(f.filename),
			CiphertextSize:       int64(len(ciphertext)),
			ContentHash:          contentHash,
			HashAlgorithm:        "SHA-256",
			Compressed:           compressed,
			CompressionAlgorithm: compressAlgo,
			OriginalSize:         originalSize,
		}

		files = append(files, builtFile{Record: record, Ciphertext: ciphertext})
		canonFiles = append(canonFiles, canonical.FileEntry{
			FileID:        fileID,
			ContentHash:   contentHash,
			CiphertextLen: len(ciphertext),
			ContentIV:     record.ContentIV,
			FilenameIV:    record.FilenameIV,
		})
		totalSize += len(ciphertext)
	}

	if int64(totalSize) > b.limits.MaxTotalSize {
		return nil, nil, 0, wrapError(KindValidation, "total ciphertext size exceeds limit", ErrTotalSizeExceeded)
	}

	return files, canonFiles, totalSize, nil
}

func (b *CapsaBuilder) encryptOptionalField(name, plaintext string, masterKey []byte, limit int) (*EncryptedField, string, error) {
	if plaintext == "" {
		return nil, "", nil
	}
	iv, err := primitives.NewIV()
	if err != nil {
		return nil, "", wrapError(KindCSPRNGFailure, "failed to generate "+name+" iv", err)
	}
	ciphertext, tag, err := primitives.EncryptAESGCM(masterKey, iv, []byte(plaintext))
	if err != nil {
		return nil, "", wrapError(KindCryptoFailure, name+" encryption failed", err)
	}
	encoded := primitives.ToBase64URL(ciphertext)
	if len(encoded) > limit {
		return nil, "", newFieldError(KindValidation, name, "encrypted "+name+" too long", int64(limit))
	}
	ivB64 := primitives.ToBase64URL(iv)
	return &EncryptedField{
		Ciphertext: encoded,
		IV:         ivB64,
		Tag:        primitives.ToBase64URL(tag),
	}, ivB64, nil
}

func (b *CapsaBuilder) encryptStructured(masterKey []byte) (*EncryptedField, string, error) {
	if len(b.structured) == 0 {
		return nil, "", nil
	}
	m := make(map[string]interface{}, len(b.structured))
	for _, f := range b.structured {
		m[f.key] = f.value
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, "", wrapError(KindValidation, "failed to marshal structured content", err)
	}
	return b.encryptOptionalField("structured", string(raw), masterKey, b.limits.MaxEncryptedStruct)
}

func (b *CapsaBuilder) assembleKeychain(masterKey []byte) ([]KeychainEntry, error) {
	partyKeys := make([]keychain.PartyKey, len(b.partyKeys))
	for i, pk := range b.partyKeys {
		partyKeys[i] = keychain.PartyKey{PartyID: pk.PartyID, PublicKey: pk.PublicKey, ActingFor: pk.ActingFor}
	}
	recipients := make([]keychain.Recipient, len(b.recipients))
	for i, r := range b.recipients {
		recipients[i] = keychain.Recipient{PartyID: r.PartyID, Permissions: r.Permissions, Delegated: r.Delegated}
	}

	entries, err := keychain.Assemble(partyKeys, b.creatorID, recipients, masterKey)
	if err != nil {
		switch {
		case errors.Is(err, keychain.ErrTooManyActingFor):
			return nil, wrapError(KindValidation, "delegate acts for too many parties", ErrTooManyActingFor)
		case errors.Is(err, keychain.ErrKeychainTooLarge):
			return nil, wrapError(KindValidation, "keychain exceeds maximum size", ErrKeychainFull)
		default:
			return nil, wrapError(KindCryptoFailure, "keychain assembly failed", err)
		}
	}

	out := make([]KeychainEntry, len(entries))
	for i, e := range entries {
		fingerprint := ""
		for _, pk := range b.partyKeys {
			if pk.PartyID == e.PartyID && pk.PublicKey != nil {
				if fp, ferr := primitives.FingerprintPublicKey(pk.PublicKey); ferr == nil {
					fingerprint = fp
				}
			}
		}
		wrapped := ""
		if e.WrappedKey != nil {
			wrapped = primitives.ToBase64URL(e.WrappedKey)
		}
		out[i] = KeychainEntry{
			PartyID:     e.PartyID,
			WrappedKey:  wrapped,
			IV:          primitives.ToBase64URL(e.IV),
			Fingerprint: fingerprint,
			Permissions: e.Permissions,
			ActingFor:   e.ActingFor,
		}
	}
	return out, nil
}

// verifyIVUniqueness is spec §4.3 step 7: every IV across files, fields,
// and keychain entries must be pairwise distinct.
func verifyIVUniqueness(files []builtFile, keychainEntries []KeychainEntry, subjectIV, bodyIV, structuredIV string) error {
	seen := make(map[string]struct{})
	add := func(iv string) error {
		if iv == "" {
			return nil
		}
		if _, ok := seen[iv]; ok {
			return wrapError(KindCSPRNGFailure, "duplicate IV detected", ErrIVCollision)
		}
		seen[iv] = struct{}{}
		return nil
	}

	for _, f := range files {
		if err := add(f.Record.ContentIV); err != nil {
			return err
		}
		if err := add(f.Record.FilenameIV); err != nil {
			return err
		}
	}
	for _, e := range keychainEntries {
		if err := add(e.IV); err != nil {
			return err
		}
	}
	if err := add(subjectIV); err != nil {
		return err
	}
	if err := add(bodyIV); err != nil {
		return err
	}
	if err := add(structuredIV); err != nil {
		return err
	}
	return nil
}
