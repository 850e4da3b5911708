package transport

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for failed requests.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (not counting the
	// initial attempt).
	MaxRetries int
	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps every computed delay, including server-suggested ones.
	MaxDelay time.Duration
	// Multiplier is the exponential growth factor applied per attempt.
	Multiplier float64
	// Jitter is the randomization fraction (0.0–1.0) applied to computed
	// delays to avoid synchronized retries across clients.
	Jitter float64
}

// DefaultRetryConfig returns the spec §4.7 defaults: 3 retries, 1s base
// delay, 30s cap.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.3,
	}
}

// RetryableStatus reports whether an HTTP status code should trigger a
// retry: 503 or 429 only (spec §4.7). Other 4xx/5xx codes surface to the
// caller immediately as server_error.
func RetryableStatus(statusCode int) bool {
	return statusCode == http.StatusServiceUnavailable || statusCode == http.StatusTooManyRequests
}

// RetryableError reports whether err represents a retryable transport-level
// failure: a network error (connection reset, DNS failure, timeout) as
// opposed to, say, a malformed request the caller constructed.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// ShouldRetry reports whether attempt (the 0-based index of the attempt that
// just failed, equal to the number of retries already made) should be
// followed by another try for the given outcome.
func (r *RetryConfig) ShouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= r.MaxRetries {
		return false
	}
	if err != nil {
		return RetryableError(err)
	}
	return RetryableStatus(statusCode)
}

// Delay computes the backoff delay before retry attempt n (1-based: the
// first retry is n=1), following spec §4.7 item 3:
//
//	baseDelay * 2^(n-1) + U(0, jitter * baseDelay * 2^(n-1))
//
// clamped to MaxDelay.
func (r *RetryConfig) Delay(n int) time.Duration {
	exp := float64(n - 1)
	if exp < 0 {
		exp = 0
	}
	delay := float64(r.BaseDelay) * math.Pow(r.Multiplier, exp)

	if r.Jitter > 0 {
		jitterSpan := delay * r.Jitter
		delay += rand.Float64() * jitterSpan
	}

	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}
	return time.Duration(delay)
}

// ResolveDelay picks the delay for retry attempt n honoring, in priority
// order (spec §4.7 items 1–3): a server-suggested retryAfter duration
// (already parsed from a JSON error body or a Retry-After header by the
// caller), else the exponential-backoff-with-jitter formula. The result is
// always clamped to MaxDelay.
func (r *RetryConfig) ResolveDelay(n int, serverSuggested time.Duration, haveSuggestion bool) time.Duration {
	if haveSuggestion {
		if serverSuggested > r.MaxDelay {
			return r.MaxDelay
		}
		if serverSuggested < 0 {
			return 0
		}
		return serverSuggested
	}
	return r.Delay(n)
}

// Wait blocks for delay, honoring ctx cancellation. Returns ctx.Err() (never
// nil) if cancelled before delay elapses.
func (r *RetryConfig) Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
