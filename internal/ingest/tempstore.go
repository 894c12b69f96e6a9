package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"resumerag/internal/errors"
	"resumerag/internal/types"
)

// TempStore holds the uploads of a single request in its own directory.
// Concurrent requests never share a path.
type TempStore struct {
	dir string

	mu    sync.Mutex
	files []string
}

// NewRequestDir creates <root>/<uuid>/. An empty root uses os.TempDir.
func NewRequestDir(root string) (*TempStore, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			"failed to create request directory", err).WithContext("dir", dir)
	}
	return &TempStore{dir: dir}, nil
}

// Dir returns the request directory.
func (s *TempStore) Dir() string { return s.dir }

// Save copies r into the request directory under kind plus the extension
// of name and returns the written path.
func (s *TempStore) Save(kind, name string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, kind+filepath.Ext(name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("failed to create temp file for %s", kind), err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("failed to write temp file for %s", kind), err)
	}

	s.mu.Lock()
	s.files = append(s.files, path)
	s.mu.Unlock()
	return path, nil
}

// Files lists the paths written so far.
func (s *TempStore) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// Cleanup removes the request directory and everything in it.
func (s *TempStore) Cleanup() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// LoadFile reads a document from disk, choosing the extractor from the
// file extension.
func LoadFile(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrCodeFileNotReadable
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return types.Document{}, errors.NewIOError(code, "failed to read file", err).
			WithContext("path", path)
	}
	return FromBytes(MimeFromFilename(path), data, filepath.Base(path))
}
