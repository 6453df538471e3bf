package fs

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Storage keeps uploaded media in one flat directory served under a public prefix.
type Storage struct {
	rootPath     string
	publicPrefix string
}

func New(rootPath, publicPrefix string) (*Storage, error) {
	// Use filepath.Clean to prevent path traversal issues like "media/../"
	p := filepath.Clean(rootPath)

	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}

	return &Storage{rootPath: p, publicPrefix: "/" + strings.Trim(publicPrefix, "/")}, nil
}

func (s *Storage) Root() string {
	return s.rootPath
}

// Save writes fileData under filename and returns its public path.
func (s *Storage) Save(fileData io.Reader, filename string) (string, error) {
	fullPath, err := s.fullPath(filename)
	if err != nil {
		return "", err
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, fileData); err != nil {
		os.Remove(fullPath) // best effort
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}

	return s.PublicPath(filename), nil
}

// Open opens a stored file by its public path.
func (s *Storage) Open(publicPath string) (io.ReadCloser, error) {
	fullPath, err := s.fromPublic(publicPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("media not found: %w", err)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file by its public path. Missing files are not an error.
func (s *Storage) Delete(publicPath string) error {
	fullPath, err := s.fromPublic(publicPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Walk returns the public paths of all stored files.
func (s *Storage) Walk() ([]string, error) {
	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.rootPath, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, s.PublicPath(e.Name()))
		}
	}
	return paths, nil
}

// ModTime reports when a stored file was last written.
func (s *Storage) ModTime(publicPath string) (time.Time, error) {
	fullPath, err := s.fromPublic(publicPath)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.ModTime(), nil
}

func (s *Storage) PublicPath(filename string) string {
	return path.Join(s.publicPrefix, filename)
}

func (s *Storage) fromPublic(publicPath string) (string, error) {
	name, ok := strings.CutPrefix(publicPath, s.publicPrefix+"/")
	if !ok {
		return "", fmt.Errorf("path %q is outside %s", publicPath, s.publicPrefix)
	}
	return s.fullPath(name)
}

func (s *Storage) fullPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.rootPath, filename), nil
}
