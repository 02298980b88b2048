// Package storage persists the tools index as JSON files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/projectenv/tools-index/internal/catalog"
)

const (
	// LockRetryDelay is the interval between two attempts to take the index file lock
	LockRetryDelay = 100 * time.Millisecond

	// filePermissions makes the published index world readable
	filePermissions = 0644
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=file.go Store

// Store defines the interface for catalog persistence
type Store interface {
	// Load reads the persisted catalog. A missing file yields an empty catalog.
	Load(ctx context.Context) (*catalog.Catalog, error)

	// Store persists the catalog in the current format and, if a legacy path is
	// configured, its legacy projection. No file is replaced unless all of them were written.
	Store(ctx context.Context, c *catalog.Catalog) error
}

// FileStore implements Store on the local filesystem.
//
// Every target is first written to a temporary file next to it while holding an exclusive
// lock on "<target>.lock". Temporary files are renamed over their targets only once all of
// them were written, the index file last, so concurrent producers never interleave and
// readers never observe a partially written index.
type FileStore struct {
	path       string
	legacyPath string
}

var _ Store = (*FileStore)(nil)

// Option configures a FileStore
type Option func(*FileStore)

// WithLegacyPath makes Store also write the legacy index to path
func WithLegacyPath(path string) Option {
	return func(s *FileStore) {
		s.legacyPath = path
	}
}

// NewFileStore creates a FileStore for the index file at path
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the index file
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and parses the index file
func (s *FileStore) Load(_ context.Context) (*catalog.Catalog, error) {
	//nolint:gosec // path is supplied by the operator on the command line
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("No existing index found, starting from an empty catalog", "path", s.path)
		return catalog.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	c := catalog.New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse index file %s: %w", s.path, err)
	}
	return c, nil
}

// Store writes the catalog to the index file and the legacy index file
func (s *FileStore) Store(ctx context.Context, c *catalog.Catalog) error {
	if c == nil {
		return fmt.Errorf("catalog cannot be nil")
	}

	if s.legacyPath != "" && s.legacyPath == s.path {
		return fmt.Errorf("legacy index path %s is the index path", s.path)
	}

	var files []*stagedFile
	if s.legacyPath != "" {
		files = append(files, &stagedFile{path: s.legacyPath, value: c.Legacy()})
	}
	files = append(files, &stagedFile{path: s.path, value: c})
	return writeAll(ctx, files)
}

// stagedFile is a target file and the temporary file holding its next content
type stagedFile struct {
	path     string
	value    any
	data     []byte
	tempPath string
	lock     *flock.Flock
}

// writeAll replaces the files in order. Nothing is replaced unless every file was staged.
func writeAll(ctx context.Context, files []*stagedFile) error {
	defer func() {
		for _, f := range files {
			if f.tempPath != "" {
				_ = os.Remove(f.tempPath)
			}
			if f.lock != nil {
				_ = f.lock.Unlock()
			}
		}
	}()

	for _, f := range files {
		data, err := json.MarshalIndent(f.value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal index: %w", err)
		}
		f.data = append(data, '\n')

		if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
		if err := f.acquire(ctx); err != nil {
			return err
		}
	}

	for _, f := range files {
		if err := f.stage(); err != nil {
			return err
		}
	}

	for _, f := range files {
		if err := os.Rename(f.tempPath, f.path); err != nil {
			return fmt.Errorf("failed to rename index file: %w", err)
		}
		f.tempPath = ""
		slog.Debug("Wrote index file", "path", f.path, "bytes", len(f.data))
	}
	return nil
}

func (f *stagedFile) acquire(ctx context.Context) error {
	lock := flock.New(f.path + ".lock")
	locked, err := lock.TryLockContext(ctx, LockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", lock.Path())
	}
	f.lock = lock
	return nil
}

// stage writes the content to a temporary file in the target's directory.
func (f *stagedFile) stage() error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}
	f.tempPath = tmp.Name()

	if _, err := tmp.Write(f.data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary index file: %w", err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set index file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary index file: %w", err)
	}
	return nil
}
