package transport

import (
	"net/http"
	"strconv"
	"time"
)

// errorBody mirrors the inbound error envelope (spec §6):
//
//	{"error":{"code":"...","message":"...","details":{...},"retryAfter":N?}}
//
// or the fallback {"message":"...","details":{...}}. Both ENVELOPE_* and
// CAPSA_* codes are accepted on read.
type errorBody struct {
	Error *struct {
		Code       string                 `json:"code"`
		Message    string                 `json:"message"`
		Details    map[string]interface{} `json:"details"`
		RetryAfter *float64               `json:"retryAfter"`
	} `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// suggestedDelay extracts a server-suggested retry delay (spec §4.7 items
// 1–2): first a JSON body `error.retryAfter` (seconds), else an HTTP
// `Retry-After` header (delta-seconds or HTTP-date).
func suggestedDelay(header http.Header, body *errorBody) (time.Duration, bool) {
	if body != nil && body.Error != nil && body.Error.RetryAfter != nil {
		return time.Duration(*body.Error.RetryAfter * float64(time.Second)), true
	}

	raw := header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, true
	}

	if t, err := http.ParseTime(raw); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}
