package transport

import (
	"context"
	"io"
)

// TokenProvider supplies a bearer token for authenticated requests. Token
// acquisition, refresh, and storage are external collaborators (spec §1) —
// this interface is their entire contract with the transport layer.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Uploader sends the multipart envelope (keychain JSON, signature, ciphertext
// parts) produced by the builder to the capsa service. The wire framing of
// the multipart request is an external collaborator's concern (spec §1);
// Uploader is the narrow seam this package needs to drive the retry policy
// over it.
type Uploader interface {
	Upload(ctx context.Context, packageID string, parts []UploadPart) (*UploadResult, error)
}

// UploadPart is one named part of a multipart upload: either JSON metadata
// (keychain, signature) or an opaque ciphertext blob.
type UploadPart struct {
	Name        string
	ContentType string
	Body        io.Reader
	Size        int64
}

// UploadResult is the service's acknowledgement of a completed upload.
type UploadResult struct {
	PackageID string
	CreatedAt string
}

// BlobStore fetches ciphertext blobs (structured data, subject, body, or a
// file) by capsa package ID and blob name, for use by a decryptor. Storage
// location and CDN/caching behavior are external collaborators per spec §1.
type BlobStore interface {
	Fetch(ctx context.Context, packageID, blobName string) (io.ReadCloser, error)
}
