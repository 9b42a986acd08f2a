package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps rendered export artifacts on the local filesystem,
// rooted at a single base directory. Callers address files by paths
// relative to that root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the root directory if needed and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data/exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export root %s: %w", baseDir, err)
	}
	return &LocalStorage{root: baseDir}, nil
}

// Save writes data to the relative path and returns the path it stored.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	target, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare export dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", filename, err)
	}
	return filename, nil
}

// SaveStream streams the reader into the relative path.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (string, error) {
	target, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare export dir: %w", err)
	}
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create export %s: %w", filename, err)
	}
	defer f.Close() //nolint:errcheck
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("stream export %s: %w", filename, err)
	}
	return filename, nil
}

// Open returns a read handle for a stored artifact.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	target, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open export %s: %w", filename, err)
	}
	return f, nil
}

// Delete removes an artifact; a missing file is not an error.
func (s *LocalStorage) Delete(filename string) error {
	target, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export %s: %w", filename, err)
	}
	return nil
}

// CleanupOlderThan removes artifacts whose mtime is older than ttl and
// returns the relative paths it removed.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var removed []string
	walkErr := filepath.WalkDir(s.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		if rel, relErr := filepath.Rel(s.root, path); relErr == nil {
			removed = append(removed, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("cleanup export root: %w", walkErr)
	}
	return removed, nil
}

// Path maps a relative artifact path to its absolute location.
func (s *LocalStorage) Path(filename string) string {
	target, err := s.resolve(filename)
	if err != nil {
		return filepath.Join(s.root, filepath.Base(filename))
	}
	return target
}

// resolve joins filename under the root and rejects paths that would
// escape it.
func (s *LocalStorage) resolve(filename string) (string, error) {
	cleaned := filepath.Clean(filename)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("path %s escapes storage root", filename)
	}
	return filepath.Join(s.root, cleaned), nil
}
