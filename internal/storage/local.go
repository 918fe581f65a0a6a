// internal/storage/local.go
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps files on disk below a base directory
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	for _, dir := range []string{ModalityImage, ModalityAudio, ModalityProfile} {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Put writes r to the object's file and returns the object name
func (s *LocalStore) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	target, err := s.resolve(objectName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return objectName, nil
}

// Open opens the object's file for reading
func (s *LocalStore) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	target, err := s.resolve(objectName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes the object's file; a missing file is not an error
func (s *LocalStore) Delete(ctx context.Context, objectName string) error {
	target, err := s.resolve(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(objectName string) (string, error) {
	cleaned := filepath.Clean("/" + objectName)
	target := filepath.Join(s.baseDir, cleaned)
	base := filepath.Clean(s.baseDir)
	if target != base && !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return target, nil
}
