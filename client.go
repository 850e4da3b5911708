package capsara

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"sync"

	"github.com/capsara/client-go/internal/cache"
	"github.com/capsara/client-go/internal/primitives"
	"github.com/capsara/client-go/internal/transport"
)

// Client is the high-level Capsara orchestrator: it wires the builder,
// decryptor, master-key cache, and retrying transport together behind a
// small send/receive API. Uploader, BlobStore, and TokenProvider are the
// external collaborators the client drives but does not implement itself
// (spec §1, §6).
type Client struct {
	limits      Limits
	retry       *transport.RetryConfig
	compression bool
	onRetry     func(attempt int, err error)

	cache *cache.Cache

	uploader  transport.Uploader
	blobStore transport.BlobStore
	tokens    transport.TokenProvider

	decryptor *CapsaDecryptor

	mu     sync.Mutex
	closed bool
}

// New creates a Client. uploader and blobStore wire the client to the
// out-of-scope REST/blob layer (spec §1); tokens may be nil when the
// transport requires no bearer auth.
func New(uploader transport.Uploader, blobStore transport.BlobStore, tokens transport.TokenProvider, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c, err := cache.New(cfg.cacheMax, cfg.cacheTTL)
	if err != nil {
		return nil, wrapError(KindValidation, "invalid cache configuration", err)
	}

	return &Client{
		limits:      cfg.limits,
		retry:       cfg.retry,
		compression: cfg.compression,
		onRetry:     cfg.onRetry,
		cache:       c,
		uploader:    uploader,
		blobStore:   blobStore,
		tokens:      tokens,
		decryptor:   NewDecryptor(),
	}, nil
}

func (c *Client) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return wrapError(KindDisposed, "client has been closed", ErrDisposed)
	}
	return nil
}

// NewBuilder returns a builder preconfigured with this client's validation
// limits and compression setting.
func (c *Client) NewBuilder(creatorID string, creatorPrivateKey *rsa.PrivateKey) *CapsaBuilder {
	b := NewBuilder(creatorID, creatorPrivateKey, c.limits)
	if !c.compression {
		b.DisableCompression()
	}
	return b
}

// Send uploads result (produced by CapsaBuilder.Build) through the
// configured Uploader: one JSON part carrying the capsa payload, then one
// ciphertext part per file, retrying per the client's retry policy. On success
// the capsa's master key and per-file metadata are cached under its
// package ID for faster subsequent decrypts by the same process.
func (c *Client) Send(ctx context.Context, result *BuildResult) (*transport.UploadResult, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	payloadJSON, err := json.Marshal(result.Payload)
	if err != nil {
		return nil, wrapError(KindValidation, "cannot encode capsa payload", err)
	}
	parts := make([]transport.UploadPart, 0, len(result.Files)+1)
	parts = append(parts, transport.UploadPart{
		Name:        "capsa",
		ContentType: "application/json",
		Body:        bytes.NewReader(payloadJSON),
		Size:        int64(len(payloadJSON)),
	})
	for _, f := range result.Files {
		parts = append(parts, transport.UploadPart{
			Name:        f.Record.FileID,
			ContentType: "application/octet-stream",
			Body:        bytes.NewReader(f.Ciphertext),
			Size:        int64(len(f.Ciphertext)),
		})
	}

	uploadResult, err := c.uploadWithRetry(ctx, result.Payload.PackageID, parts)
	if err != nil {
		return nil, err
	}

	if result.MasterKey != nil {
		files := make(map[string]cache.FileMetadata, len(result.Payload.Files))
		for _, f := range result.Payload.Files {
			files[f.FileID] = cache.FileMetadata{
				MIMEType:        f.MIMEType,
				Compressed:      f.Compressed,
				CompressionAlgo: f.CompressionAlgorithm,
				OriginalSize:    int(f.OriginalSize),
			}
		}
		_ = c.cache.Set(result.Payload.PackageID, result.MasterKey.Bytes(), files)
		result.MasterKey.Wipe()
	}

	return uploadResult, nil
}

func (c *Client) uploadWithRetry(ctx context.Context, packageID string, parts []transport.UploadPart) (*transport.UploadResult, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := c.uploader.Upload(ctx, packageID, parts)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, wrapError(KindCancelled, "upload cancelled", ctx.Err())
		}

		retryable := transport.RetryableError(err)
		var serverErr *transport.ServerError
		if se, ok := err.(*transport.ServerError); ok {
			serverErr = se
			retryable = transport.RetryableStatus(se.StatusCode)
		}

		if !c.retry.ShouldRetry(attempt, statusOf(serverErr), errIfNetwork(retryable, err)) {
			return nil, wrapError(KindTransport, "upload failed", lastErr)
		}

		if c.onRetry != nil {
			c.onRetry(attempt+1, err)
		}
		delay := c.retry.Delay(attempt + 1)
		if werr := c.retry.Wait(ctx, delay); werr != nil {
			return nil, wrapError(KindCancelled, "upload retry cancelled", werr)
		}
	}
}

func statusOf(se *transport.ServerError) int {
	if se == nil {
		return 0
	}
	return se.StatusCode
}

func errIfNetwork(retryable bool, err error) error {
	if retryable {
		if _, ok := err.(*transport.ServerError); !ok {
			return err
		}
	}
	return nil
}

// Decrypt fetches nothing itself: payload is supplied by the caller (having
// been retrieved via the out-of-scope REST layer) and is decrypted and,
// when the master key was not already cached for packageID, cached for
// subsequent calls.
func (c *Client) Decrypt(payload CapsaUploadData, privateKey *rsa.PrivateKey, creatorPublicKey *rsa.PublicKey) (*DecryptedCapsa, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	capsa, err := c.decryptor.Decrypt(payload, privateKey, creatorPublicKey)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.cache.GetMasterKey(payload.PackageID); ok {
		cached.Wipe()
		return capsa, nil
	}
	files := make(map[string]cache.FileMetadata, len(payload.Files))
	for _, f := range payload.Files {
		files[f.FileID] = cache.FileMetadata{MIMEType: f.MIMEType, Compressed: f.Compressed, CompressionAlgo: f.CompressionAlgorithm, OriginalSize: int(f.OriginalSize)}
	}
	_ = c.cache.Set(payload.PackageID, capsa.masterKey.Bytes(), files)
	return capsa, nil
}

// FetchFile downloads packageID's file blobName through the configured
// BlobStore. The retry policy does not apply here (spec §6: "the blob store
// has its own retry").
func (c *Client) FetchFile(ctx context.Context, packageID, blobName string) ([]byte, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	rc, err := c.blobStore.Fetch(ctx, packageID, blobName)
	if err != nil {
		return nil, wrapError(KindTransport, "blob fetch failed", err)
	}
	defer rc.Close()

	var buf []byte
	chunk := make([]byte, 32*1024)
	for {
		n, rerr := rc.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

// CachedMasterKey returns an owned copy of the cached master key for
// packageID, if present and not expired. The caller must call Wipe on the
// returned SecureBytes when done (spec §4.6, §8 invariant 9).
func (c *Client) CachedMasterKey(packageID string) (*primitives.SecureBytes, bool) {
	return c.cache.GetMasterKey(packageID)
}

// Close disposes the client: the master-key cache is cleared (every entry
// wiped) and further calls return a disposed error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cache.ClearAll()
	return nil
}
