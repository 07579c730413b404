package loader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Source is an opaque handle to a model file
type Source interface {
	// Name identifies the source in logs and selects the loader by extension.
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource is a model file on disk
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by a file path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return filepath.Base(s.path) }

// Path returns the file path, letting loaders resolve sibling resources
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

// BytesSource is an in-memory model file
type BytesSource struct {
	name string
	data []byte
}

// NewBytesSource wraps data under name; the extension of name picks the loader
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

func (s *BytesSource) Name() string { return s.name }

func (s *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// pathOf returns the on-disk path of a source, or "" for in-memory sources
func pathOf(src Source) string {
	if p, ok := src.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// open opens src and marks failures as fetch errors
func open(src Source) (io.ReadCloser, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, &LoadError{Source: src.Name(), Reason: ReasonFetch, Err: err}
	}
	return rc, nil
}
