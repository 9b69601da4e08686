package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactStore owns the filesystem lifecycle of screenshot and diff
// images. Records reference artifacts by path; the store never lets a
// delete escape its root directory.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates the artifact root if needed
func NewArtifactStore(root string) (*ArtifactStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	return &ArtifactStore{root: abs}, nil
}

// SaveScreenshot writes a screenshot PNG for a monitor and returns its path
func (s *ArtifactStore) SaveScreenshot(monitorID string, data []byte) (string, error) {
	return s.save(monitorID, "shot", data)
}

// SaveDiffImage writes a highlighted diff PNG for a monitor and returns its path
func (s *ArtifactStore) SaveDiffImage(monitorID string, data []byte) (string, error) {
	return s.save(monitorID, "diff", data)
}

func (s *ArtifactStore) save(monitorID, prefix string, data []byte) (string, error) {
	dir := filepath.Join(s.root, monitorID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	name := fmt.Sprintf("%s-%d.png", prefix, time.Now().UnixNano())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Read loads an artifact by path
func (s *ArtifactStore) Read(path string) ([]byte, error) {
	if !s.contains(path) {
		return nil, fmt.Errorf("artifact path %q is outside the artifact root", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Delete removes a superseded artifact. Missing files are not an error:
// an abandoned check may have cleaned up already.
func (s *ArtifactStore) Delete(path string) error {
	if path == "" {
		return nil
	}
	if !s.contains(path) {
		return fmt.Errorf("artifact path %q is outside the artifact root", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// DeleteAll removes every artifact belonging to a monitor, used when the
// monitor itself is deleted
func (s *ArtifactStore) DeleteAll(monitorID string) error {
	if monitorID == "" || strings.ContainsAny(monitorID, `/\`) {
		return fmt.Errorf("invalid monitor id %q", monitorID)
	}
	if err := os.RemoveAll(filepath.Join(s.root, monitorID)); err != nil {
		return fmt.Errorf("failed to delete artifacts for %s: %w", monitorID, err)
	}
	return nil
}

func (s *ArtifactStore) contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, s.root+string(os.PathSeparator))
}
