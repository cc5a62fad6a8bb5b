package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ContentStore reads submitted file content from a content-addressed directory
// laid out as <base>/<h[0:2]>/<h[2:4]>/<hash>.
type ContentStore struct {
	baseDir string
}

// NewContentStore ensures the base directory exists and returns a handle.
func NewContentStore(baseDir string) (*ContentStore, error) {
	if baseDir == "" {
		baseDir = "./filedir"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create file directory: %w", err)
	}
	return &ContentStore{baseDir: baseDir}, nil
}

// Save writes data under its content hash and returns the relative path.
func (s *ContentStore) Save(contentHash string, data []byte) (string, error) {
	rel, err := relativePath(contentHash)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare content directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write content file: %w", err)
	}
	return rel, nil
}

// Read returns the bytes stored for a content hash.
func (s *ContentStore) Read(contentHash string) ([]byte, error) {
	rel, err := relativePath(contentHash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, rel))
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return data, nil
}

// Delete removes stored content if present.
func (s *ContentStore) Delete(contentHash string) error {
	rel, err := relativePath(contentHash)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.baseDir, rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete content file: %w", err)
	}
	return nil
}

// Path exposes the absolute location of a content hash (useful for debugging).
func (s *ContentStore) Path(contentHash string) string {
	rel, err := relativePath(contentHash)
	if err != nil {
		return ""
	}
	return filepath.Join(s.baseDir, rel)
}

func relativePath(contentHash string) (string, error) {
	hash := strings.ToLower(strings.TrimSpace(contentHash))
	if len(hash) < 4 || strings.ContainsAny(hash, `/\.`) {
		return "", fmt.Errorf("invalid content hash %q", contentHash)
	}
	return filepath.Join(hash[0:2], hash[2:4], hash), nil
}
