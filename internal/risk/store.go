package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the trained artifact as JSON on local disk. Writes go
// to a temp file in the same directory and rename into place, so a crashed
// save never leaves a partially written artifact behind.
type FileStore struct {
	path string
}

// NewFileStore creates a store rooted at the given artifact path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the artifact location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the artifact atomically.
func (s *FileStore) Save(artifact *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}

	return nil
}

// Load reads the persisted artifact. A missing file is not an error; it
// returns (nil, nil) so callers can start without a model.
func (s *FileStore) Load() (*Artifact, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	return &artifact, nil
}
