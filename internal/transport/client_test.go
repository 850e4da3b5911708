package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type staticToken struct{ token string }

func (s staticToken) Token(ctx context.Context) (string, error) { return s.token, nil }

func getRequest(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestClient_Do_SucceedsImmediately(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("Authorization = %s, want Bearer tok-123", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(staticToken{"tok-123"})
	resp, err := c.Do(context.Background(), getRequest(server.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestClient_Do_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(nil)
	c.Retry.BaseDelay = time.Millisecond
	c.Retry.MaxDelay = 10 * time.Millisecond

	resp, err := c.Do(context.Background(), getRequest(server.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestClient_Do_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	t.Parallel()
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(nil)
	c.Retry.MaxRetries = 3
	c.Retry.BaseDelay = time.Millisecond
	c.Retry.MaxDelay = 5 * time.Millisecond

	_, err := c.Do(context.Background(), getRequest(server.URL))
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if serverErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", serverErr.StatusCode)
	}
	// Initial attempt + 3 retries = 4 total.
	if atomic.LoadInt32(&attempts) != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestClient_Do_NoRetryOnNonRetryableStatus(t *testing.T) {
	t.Parallel()
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "CAPSA_VALIDATION", "message": "bad input"},
		})
	}))
	defer server.Close()

	c := NewClient(nil)
	_, err := c.Do(context.Background(), getRequest(server.URL))
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 400)", attempts)
	}
}

func TestClient_Do_RetryAfterHeaderHonored(t *testing.T) {
	t.Parallel()
	var attempts int32
	var firstAttempt, secondAttempt time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			firstAttempt = time.Now()
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		secondAttempt = time.Now()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(nil)
	c.Retry.BaseDelay = time.Hour // prove the header overrides backoff, not the default

	resp, err := c.Do(context.Background(), getRequest(server.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if secondAttempt.Sub(firstAttempt) > time.Second {
		t.Errorf("second attempt took %v, expected near-immediate retry from Retry-After: 0", secondAttempt.Sub(firstAttempt))
	}
}

func TestClient_Do_CancelledDuringRetryDelay(t *testing.T) {
	t.Parallel()
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(nil)
	c.Retry.BaseDelay = 200 * time.Millisecond
	c.Retry.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Do(ctx, getRequest(server.URL))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (cancelled during delay)", attempts)
	}
}

func TestClient_Do_NetworkErrorClassifiedAndRetried(t *testing.T) {
	t.Parallel()
	c := NewClient(nil)
	c.Retry.MaxRetries = 1
	c.Retry.BaseDelay = time.Millisecond
	c.Retry.MaxDelay = 5 * time.Millisecond

	_, err := c.Do(context.Background(), getRequest("http://127.0.0.1:1"))
	if err == nil {
		t.Fatal("expected network error")
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("expected *NetworkError, got %T: %v", err, err)
	}
}

func TestClient_Do_ServerErrorCodeMapsToSentinel(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "ENVELOPE_NOT_FOUND", "message": "gone"},
		})
	}))
	defer server.Close()

	c := NewClient(nil)
	_, err := c.Do(context.Background(), getRequest(server.URL))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected errors.Is(err, ErrNotFound), got %v", err)
	}
}
