package primitives

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// MaybeCompress gzips data and returns (compressed, true) only when doing so
// both clears the CompressionBreakEven threshold and strictly shrinks the
// input. Otherwise it returns (data, false) unchanged — the caller must not
// mark the result as compressed in that case.
func MaybeCompress(data []byte) ([]byte, bool, error) {
	if len(data) < CompressionBreakEven {
		return data, false, nil
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, false, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, false, fmt.Errorf("gzip close: %w", err)
	}

	if buf.Len() >= len(data) {
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// Decompress reverses MaybeCompress.
func Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}
