package api

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage keeps the receipt images posted to /ocr
type Storage interface {
	// Save stores data under name and returns the stored name
	Save(name string, data []byte) (string, error)

	// Delete removes a stored upload
	Delete(name string) error
}

// LocalStorage keeps uploads as files in one flat directory
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir if needed
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// resolve maps an upload name to its file, dropping any directory part
func (l *LocalStorage) resolve(name string) (string, string) {
	base := filepath.Base(name)
	return base, filepath.Join(l.dir, base)
}

// Save writes a new upload. An existing upload with the same name is never replaced.
func (l *LocalStorage) Save(name string, data []byte) (string, error) {
	base, path := l.resolve(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	return base, nil
}

// Delete removes an upload
func (l *LocalStorage) Delete(name string) error {
	_, path := l.resolve(name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
