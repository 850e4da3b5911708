package capsara

import (
	"encoding/json"
	"time"
)

// EncryptedField is a ciphertext/IV/tag triple, base64url-encoded on the
// wire, used for subject, body, and structured content.
type EncryptedField struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
}

// EncryptedFile is one file record within a CapsaUploadData payload.
type EncryptedFile struct {
	FileID               string     `json:"fileId"`
	EncryptedFilename    string     `json:"encryptedFilename"`
	FilenameIV           string     `json:"filenameIv"`
	FilenameTag          string     `json:"filenameTag"`
	ContentIV            string     `json:"contentIv"`
	ContentTag           string     `json:"contentTag"`
	MIMEType             string     `json:"mimeType"`
	CiphertextSize       int64      `json:"ciphertextSize"`
	ContentHash          string     `json:"contentHash"`
	HashAlgorithm        string     `json:"hashAlgorithm"`
	Compressed           bool       `json:"compressed,omitempty"`
	CompressionAlgorithm string     `json:"compressionAlgorithm,omitempty"`
	OriginalSize         int64      `json:"originalSize,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
}

// KeychainEntry is one party's wrapped-key record within a capsa's keychain.
type KeychainEntry struct {
	PartyID     string   `json:"partyId"`
	WrappedKey  string   `json:"encryptedKey"`
	IV          string   `json:"iv"`
	Fingerprint string   `json:"fingerprint"`
	Permissions []string `json:"permissions"`
	ActingFor   []string `json:"actingFor,omitempty"`
	Revoked     bool     `json:"revoked,omitempty"`
}

// Signature is the JWS triple recorded on a capsa.
type Signature struct {
	Protected string `json:"protected"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// UnencryptedMetadata is the optional, server-visible (not encrypted)
// metadata a creator may attach to a capsa.
type UnencryptedMetadata struct {
	Label           string   `json:"label,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	RelatedPackages []string `json:"relatedPackages,omitempty"`
}

// CapsaUploadData is the full wire payload produced by Build and accepted by
// the capsa service.
type CapsaUploadData struct {
	PackageID        string               `json:"packageId"`
	Keychain         []KeychainEntry      `json:"keychain"`
	Signature        Signature            `json:"signature"`
	ExpiresAt        *time.Time           `json:"expiresAt,omitempty"`
	DeliveryPriority string               `json:"deliveryPriority"`
	Files            []EncryptedFile      `json:"files"`
	Subject          *EncryptedField      `json:"subject,omitempty"`
	Body             *EncryptedField      `json:"body,omitempty"`
	Structured       *EncryptedField      `json:"structured,omitempty"`
	Metadata         *UnencryptedMetadata `json:"metadata,omitempty"`
}

// isDelegateWire decodes the `isDelegate` field's three on-wire shapes:
// missing/null, `true`, or an array of party IDs. `true` decodes to an empty,
// non-nil list, and an empty list encodes back as `true`, so `[]` on the wire
// re-encodes as `true`.
type isDelegateWire struct {
	set      bool
	partyIDs []string
}

func (d *isDelegateWire) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		d.set = asBool
		if asBool {
			d.partyIDs = []string{}
		}
		return nil
	}
	var asList []string
	if err := json.Unmarshal(data, &asList); err != nil {
		return err
	}
	d.set = true
	d.partyIDs = asList
	return nil
}

func (d isDelegateWire) MarshalJSON() ([]byte, error) {
	if !d.set {
		return json.Marshal(nil)
	}
	if len(d.partyIDs) == 0 {
		return json.Marshal(true)
	}
	return json.Marshal(d.partyIDs)
}

// PartyKeyRecord is the wire form of one party-key list entry (spec §4.3
// step 5); the builder itself takes PartyKey values. isDelegate's
// polymorphic wire shape (bool | list | missing) is normalized here into an
// explicit ActingFor slice: nil means "not a delegate", a non-nil (possibly
// empty) slice means "delegate of these parties".
type PartyKeyRecord struct {
	PartyID    string         `json:"partyId"`
	PublicKey  string         `json:"publicKey"`            // PEM, as transmitted
	IsDelegate isDelegateWire `json:"isDelegate,omitempty"`
}

// ActingFor returns the normalized delegate party-ID list, or nil if this
// record is not a delegate.
func (p PartyKeyRecord) ActingFor() []string {
	if !p.IsDelegate.set {
		return nil
	}
	return p.IsDelegate.partyIDs
}
