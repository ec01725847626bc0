package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidName = errors.New("invalid blob name")
	ErrExists      = errors.New("blob already exists")
	ErrNotFound    = errors.New("blob not found")
)

// FileStore keeps one file per blob in a flat directory.
type FileStore struct {
	directory string
}

// NewFileStore creates the directory if needed.
func NewFileStore(directory string) (*FileStore, error) {
	if directory == "" {
		return nil, fmt.Errorf("blob directory must not be empty")
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", directory, err)
	}
	return &FileStore{directory: directory}, nil
}

// GenerateName derives a blob name from the upload time (second granularity) and the
// client basename. Two uploads of the same basename within one second collide; Save
// reports that as ErrExists.
func GenerateName(now time.Time, basename string) string {
	return fmt.Sprintf("%d_%s", now.Unix(), basename)
}

// Directory returns the root directory of the store
func (s *FileStore) Directory() string {
	return s.directory
}

// Path returns the location of a blob without checking that it exists.
func (s *FileStore) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.directory, name), nil
}

// Save writes data under name. An existing blob is never overwritten.
func (s *FileStore) Save(name string, data []byte) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return fmt.Errorf("failed to create blob %s: %w", name, err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close blob %s: %w", name, err)
	}
	return nil
}

// Open returns a reader for the blob; the caller closes it.
func (s *FileStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", name, err)
	}
	return file, nil
}

// Read returns the full content of a blob.
func (s *FileStore) Read(name string) ([]byte, error) {
	reader, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	return io.ReadAll(reader)
}

// Exists reports whether name refers to a regular file in the store.
func (s *FileStore) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes a blob. Deleting a missing blob succeeds.
func (s *FileStore) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	return nil
}

// List returns the sorted names of all blobs.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to list blob directory %s: %w", s.directory, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
