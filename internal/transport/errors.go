package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks against classified failures.
var (
	// ErrCancelled is returned when a caller-supplied context is cancelled
	// before a request or retry delay completes.
	ErrCancelled = errors.New("operation cancelled")

	// ErrUnauthorized corresponds to the well-known not-authorized server
	// error code.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound corresponds to the well-known not-found server error code.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied corresponds to the well-known access-denied server
	// error code.
	ErrAccessDenied = errors.New("access denied")
	// ErrDeleted corresponds to the well-known deleted server error code.
	ErrDeleted = errors.New("resource deleted")
	// ErrCreatorMismatch corresponds to the well-known creator-mismatch
	// server error code.
	ErrCreatorMismatch = errors.New("creator mismatch")
)

// codeToSentinel maps both the current CAPSA_* codes and the legacy
// ENVELOPE_* codes accepted for compatibility (spec §9 Open Questions) to a
// public sentinel error. Unrecognized codes produce a generic *ServerError.
var codeToSentinel = map[string]error{
	"CAPSA_UNAUTHORIZED":      ErrUnauthorized,
	"ENVELOPE_UNAUTHORIZED":   ErrUnauthorized,
	"CAPSA_NOT_FOUND":         ErrNotFound,
	"ENVELOPE_NOT_FOUND":      ErrNotFound,
	"CAPSA_ACCESS_DENIED":     ErrAccessDenied,
	"ENVELOPE_ACCESS_DENIED":  ErrAccessDenied,
	"CAPSA_DELETED":           ErrDeleted,
	"ENVELOPE_DELETED":        ErrDeleted,
	"CAPSA_CREATOR_MISMATCH":  ErrCreatorMismatch,
	"ENVELOPE_CREATOR_MISMATCH": ErrCreatorMismatch,
}

// ServerError represents an HTTP error response with a non-retryable status,
// or with a retryable one once retries are exhausted (spec: kind
// server_error). Writers of new errors should only ever emit CAPSA_* codes;
// readers accept both CAPSA_* and the legacy ENVELOPE_* family.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// Is implements errors.Is against the well-known sentinel errors above.
func (e *ServerError) Is(target error) bool {
	if sentinel, ok := codeToSentinel[e.Code]; ok {
		return target == sentinel
	}
	return false
}

// NetworkError wraps a transport-level failure (connection reset, DNS,
// timeout). Always retryable per spec §7.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// newServerError builds a *ServerError from a parsed inbound error envelope,
// accepting either the {"error":{...}} shape or the bare fallback shape.
func newServerError(statusCode int, body *errorBody, rawBody string) *ServerError {
	if body != nil && body.Error != nil {
		return &ServerError{
			StatusCode: statusCode,
			Code:       body.Error.Code,
			Message:    body.Error.Message,
			Details:    body.Error.Details,
		}
	}
	if body != nil && body.Message != "" {
		return &ServerError{StatusCode: statusCode, Message: body.Message, Details: body.Details}
	}
	return &ServerError{StatusCode: statusCode, Message: rawBody}
}
