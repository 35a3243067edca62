package orbit

import "fmt"

type sourceKind int

const (
	sourceInvalid sourceKind = iota
	sourceBuffer
	sourceFilePath
	sourceDirectoryPath
)

// ContentSource describes where the content of a file post comes from.
// Exactly three origins exist, each with its own content-addressing strategy:
// an in-memory buffer with a filename, a single file path, or a directory
// path. Construct with FromBuffer, FromFilePath or FromDirectoryPath.
type ContentSource struct {
	kind      sourceKind
	filename  string
	directory string
	buffer    []byte
	size      int64
}

// FromBuffer describes content held in memory, posted under filename.
func FromBuffer(filename string, data []byte) (ContentSource, error) {
	if filename == "" {
		return ContentSource{}, fmt.Errorf("%w: buffer source requires a filename", ErrInvalidArgument)
	}
	if data == nil {
		return ContentSource{}, fmt.Errorf("%w: buffer source requires content", ErrInvalidArgument)
	}
	return ContentSource{kind: sourceBuffer, filename: filename, buffer: data}, nil
}

// FromFilePath describes a single file on the local filesystem.
func FromFilePath(path string) (ContentSource, error) {
	if path == "" {
		return ContentSource{}, fmt.Errorf("%w: file source requires a path", ErrInvalidArgument)
	}
	return ContentSource{kind: sourceFilePath, filename: path}, nil
}

// FromDirectoryPath describes a directory tree on the local filesystem.
func FromDirectoryPath(path string) (ContentSource, error) {
	if path == "" {
		return ContentSource{}, fmt.Errorf("%w: directory source requires a path", ErrInvalidArgument)
	}
	return ContentSource{kind: sourceDirectoryPath, directory: path}, nil
}

// WithSize returns a copy of the source carrying a caller-declared content
// size, recorded on the resulting post's meta. Defaults to 0 when unset.
func (s ContentSource) WithSize(size int64) ContentSource {
	s.size = size
	return s
}

func (s ContentSource) valid() bool {
	return s.kind != sourceInvalid
}

// path returns the filesystem path to add for path-based sources.
func (s ContentSource) path() string {
	if s.kind == sourceDirectoryPath {
		return s.directory
	}
	return s.filename
}
