package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps an *http.Client with the retry policy from retry.go: request
// construction and response decoding stay the caller's responsibility (via
// reqFn/decode), this type only owns "try, classify, maybe wait, try again".
type Client struct {
	HTTP   *http.Client
	Retry  *RetryConfig
	Tokens TokenProvider
}

// NewClient builds a Client with DefaultRetryConfig and http.DefaultClient.
func NewClient(tokens TokenProvider) *Client {
	return &Client{
		HTTP:   http.DefaultClient,
		Retry:  DefaultRetryConfig(),
		Tokens: tokens,
	}
}

// Do executes reqFn's request, retrying on a classified-retryable outcome
// per the configured RetryConfig, and honoring ctx cancellation at every
// await point (request in flight and inter-attempt sleep alike). reqFn is
// invoked once per attempt since an *http.Request body can only be read
// once.
func (c *Client) Do(ctx context.Context, reqFn func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		req, err := reqFn(ctx)
		if err != nil {
			return nil, err
		}

		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", UserAgent)
		}
		if c.Tokens != nil {
			token, err := c.Tokens.Token(ctx)
			if err != nil {
				return nil, fmt.Errorf("acquiring token: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = &NetworkError{Err: err}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			if !c.Retry.ShouldRetry(attempt, 0, err) {
				return nil, lastErr
			}
			if werr := c.Retry.Wait(ctx, c.Retry.Delay(attempt+1)); werr != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, werr)
			}
			continue
		}

		if !RetryableStatus(resp.StatusCode) {
			if resp.StatusCode >= 400 {
				serverErr := decodeServerError(resp)
				resp.Body.Close()
				return nil, serverErr
			}
			return resp, nil
		}

		body, suggestion, haveSuggestion := readRetryableBody(resp)
		resp.Body.Close()

		if !c.Retry.ShouldRetry(attempt, resp.StatusCode, nil) {
			return nil, newServerError(resp.StatusCode, body, "")
		}

		delay := c.Retry.ResolveDelay(attempt+1, suggestion, haveSuggestion)
		if werr := c.Retry.Wait(ctx, delay); werr != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, werr)
		}
	}
}

// decodeServerError reads resp.Body into a *ServerError for a non-retryable
// 4xx/5xx response. The caller closes resp.Body.
func decodeServerError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	return newServerError(resp.StatusCode, &body, string(raw))
}

// readRetryableBody reads and parses a retryable (503/429) response body,
// returning the parsed envelope and any server-suggested retry delay.
func readRetryableBody(resp *http.Response) (*errorBody, time.Duration, bool) {
	var body errorBody
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	delay, ok := suggestedDelay(resp.Header, &body)
	return &body, delay, ok
}

// SDKVersion is this module's version, reported in the User-Agent header
// (spec §6) of every outbound request.
const SDKVersion = "0.1.0"

// UserAgent is the fixed User-Agent header value set by NewRequest, and by
// Client.Do on any request that does not already carry one.
const UserAgent = "capsara-go/" + SDKVersion

// NewRequest builds an *http.Request carrying the package's User-Agent
// header (spec §6), for use as a reqFn passed to Client.Do or by an external
// Uploader/BlobStore implementation that wants the same identification.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}
