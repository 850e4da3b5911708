package capsara

import (
	"fmt"
	"io"
	"os"
)

// fileInputKind tags which case of fileInput is populated (spec §9: "duck
// typed file input → tagged variant").
type fileInputKind int

const (
	fileInputPath fileInputKind = iota
	fileInputBytes
	fileInputStream
)

// fileInput is a builder-internal sum type over the three ways a caller may
// supply file content. Size is resolved up front (stat, len, or a caller
// hint) so per-file limits can be checked before any read.
type fileInput struct {
	kind     fileInputKind
	filename string
	path     string
	data     []byte
	stream   io.Reader
	size     int64
}

// FileFromPath adds a file by filesystem path; its name defaults to the
// base name of path. Size is resolved via os.Stat when FileFromPath is
// called.
func FileFromPath(path string) (fileInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileInput{}, wrapError(KindValidation, "cannot stat file", err)
	}
	return fileInput{
		kind:     fileInputPath,
		filename: baseName(path),
		path:     path,
		size:     info.Size(),
	}, nil
}

// FileFromBytes adds an in-memory file under the given name.
func FileFromBytes(filename string, data []byte) fileInput {
	return fileInput{
		kind:     fileInputBytes,
		filename: filename,
		data:     data,
		size:     int64(len(data)),
	}
}

// FileFromStream adds a file whose content is read from r. size must be
// known ahead of time (e.g. from the caller's own stat) so the builder can
// enforce per-file and total-size limits before reading.
func FileFromStream(filename string, r io.Reader, size int64) fileInput {
	return fileInput{
		kind:     fileInputStream,
		filename: filename,
		stream:   r,
		size:     size,
	}
}

// read materializes the file's bytes. Called once, during Build, in
// insertion order.
func (f fileInput) read() ([]byte, error) {
	switch f.kind {
	case fileInputPath:
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, wrapError(KindValidation, "failed to read file", err)
		}
		return data, nil
	case fileInputBytes:
		return f.data, nil
	case fileInputStream:
		data, err := io.ReadAll(f.stream)
		if err != nil {
			return nil, wrapError(KindValidation, "failed to read stream", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("capsara: unknown file input kind %d", f.kind)
	}
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
