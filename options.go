package capsara

import (
	"time"

	"github.com/capsara/client-go/internal/transport"
)

// Default limits, per spec §4.3/§6.
const (
	DefaultMaxKeychainSize      = 100
	DefaultMaxFileSize          = 100 * 1024 * 1024  // 100 MiB
	DefaultMaxTotalSize         = 500 * 1024 * 1024  // 500 MiB
	DefaultMaxEncryptedFilename = 2048
	DefaultMaxEncryptedSubject  = 65536
	DefaultMaxEncryptedBody     = 1048576
	DefaultMaxEncryptedStruct   = 1048576
	DefaultMaxSignaturePayload  = 65536
	DefaultMaxLabelLength       = 512
	DefaultMaxTags              = 100
	DefaultMaxTagLength         = 100
	DefaultMaxNotesLength       = 10240
	DefaultMaxRelatedPackages   = 50
	DefaultMaxActingFor         = 10
	DefaultMaxPartyIDLength     = 100
)

// Limits holds every size/count ceiling the builder enforces (spec §4.3).
// Subject, body and total file size are checked when set or added and again
// during Build. The metadata, party-ID, keychain-size, acting-for and
// per-file limits are checked only when the value is set or added; the
// structured-data, encrypted-filename and signature-payload limits are
// checked only during Build.
type Limits struct {
	MaxKeychainSize      int
	MaxFileSize          int64
	MaxTotalSize         int64
	MaxEncryptedFilename int
	MaxEncryptedSubject  int
	MaxEncryptedBody     int
	MaxEncryptedStruct   int
	MaxSignaturePayload  int
	MaxLabelLength       int
	MaxTags              int
	MaxTagLength         int
	MaxNotesLength       int
	MaxRelatedPackages   int
	MaxActingFor         int
	MaxPartyIDLength     int
}

// DefaultLimits returns the spec's default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxKeychainSize:      DefaultMaxKeychainSize,
		MaxFileSize:          DefaultMaxFileSize,
		MaxTotalSize:         DefaultMaxTotalSize,
		MaxEncryptedFilename: DefaultMaxEncryptedFilename,
		MaxEncryptedSubject:  DefaultMaxEncryptedSubject,
		MaxEncryptedBody:     DefaultMaxEncryptedBody,
		MaxEncryptedStruct:   DefaultMaxEncryptedStruct,
		MaxSignaturePayload:  DefaultMaxSignaturePayload,
		MaxLabelLength:       DefaultMaxLabelLength,
		MaxTags:              DefaultMaxTags,
		MaxTagLength:         DefaultMaxTagLength,
		MaxNotesLength:       DefaultMaxNotesLength,
		MaxRelatedPackages:   DefaultMaxRelatedPackages,
		MaxActingFor:         DefaultMaxActingFor,
		MaxPartyIDLength:     DefaultMaxPartyIDLength,
	}
}

// clientConfig holds configuration for a Client.
type clientConfig struct {
	retry       *transport.RetryConfig
	limits      Limits
	cacheMax    int
	cacheTTL    time.Duration
	compression bool
	onRetry     func(attempt int, err error)
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		retry:       transport.DefaultRetryConfig(),
		limits:      DefaultLimits(),
		cacheMax:    100,
		cacheTTL:    5 * time.Minute,
		compression: true,
	}
}

// Option configures a Client.
type Option func(*clientConfig)

// WithRetryConfig overrides the default retry/backoff policy.
func WithRetryConfig(cfg *transport.RetryConfig) Option {
	return func(c *clientConfig) { c.retry = cfg }
}

// WithLimits overrides the default builder validation limits.
func WithLimits(limits Limits) Option {
	return func(c *clientConfig) { c.limits = limits }
}

// WithCacheSize sets the master-key cache's maximum entry count.
func WithCacheSize(max int) Option {
	return func(c *clientConfig) { c.cacheMax = max }
}

// WithCacheTTL sets the master-key cache's entry time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) { c.cacheTTL = ttl }
}

// WithCompression enables or disables gzip pre-compression. Enabled by
// default; the break-even heuristic still applies per file when enabled.
func WithCompression(enabled bool) Option {
	return func(c *clientConfig) { c.compression = enabled }
}

// WithOnRetry registers a callback invoked before each retry attempt, for
// observability. It must not block.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *clientConfig) { c.onRetry = fn }
}
