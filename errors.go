package capsara

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable classification of a Capsara error,
// matched by callers instead of parsing messages.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindCryptoFailure ErrorKind = "crypto_failure"
	KindCSPRNGFailure ErrorKind = "csprng_failure"
	KindTransport     ErrorKind = "transport"
	KindServerError   ErrorKind = "server_error"
	KindCancelled     ErrorKind = "cancelled"
	KindDisposed      ErrorKind = "disposed"
)

// CapsaError is the error type raised by every builder, decryptor, and cache
// operation. Kind is always set; Field and Limit are populated for
// validation failures that concern one field against one configured limit.
type CapsaError struct {
	Kind    ErrorKind
	Message string
	Field   string
	Limit   int64
	Wrapped error
}

func (e *CapsaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CapsaError) Unwrap() error { return e.Wrapped }

// Is reports whether target is the sentinel this CapsaError wraps, so
// callers can use errors.Is(err, capsara.ErrAccessRevoked) without knowing
// about CapsaError's shape.
func (e *CapsaError) Is(target error) bool {
	return errors.Is(e.Wrapped, target)
}

func newError(kind ErrorKind, msg string) *CapsaError {
	return &CapsaError{Kind: kind, Message: msg}
}

func newFieldError(kind ErrorKind, field, msg string, limit int64) *CapsaError {
	return &CapsaError{Kind: kind, Message: msg, Field: field, Limit: limit}
}

func wrapError(kind ErrorKind, msg string, err error) *CapsaError {
	return &CapsaError{Kind: kind, Message: msg, Wrapped: err}
}

// Sentinel errors for errors.Is() checks against well-known failure modes.
// CapsaError.Is makes `errors.Is(err, capsara.ErrX)` work transparently
// whenever a *CapsaError wraps one of these.
var (
	ErrEmptyCapsa        = errors.New("capsa has no files, subject, or body")
	ErrKeychainFull      = errors.New("keychain exceeds maximum size")
	ErrFileTooLarge      = errors.New("file exceeds per-file size limit")
	ErrTotalSizeExceeded = errors.New("total ciphertext size exceeds limit")
	ErrFieldTooLarge     = errors.New("encrypted field exceeds size limit")
	ErrMetadataTooLarge  = errors.New("unencrypted metadata exceeds a limit")
	ErrTooManyActingFor  = errors.New("delegate acts for too many parties")
	ErrAccessRevoked     = errors.New("keychain entry has been revoked for this party")
	ErrUnwrapFailed      = errors.New("master key unwrap failed")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrFieldTampered     = errors.New("field ciphertext or tag mismatch")
	ErrNoMatchingEntry   = errors.New("no keychain entry matches this party's key")
	ErrIVCollision       = errors.New("duplicate IV detected within capsa")
	ErrDisposed          = errors.New("operation attempted on a disposed builder or cache")
)
