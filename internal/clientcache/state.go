package clientcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is what the client remembers between runs
type State struct {
	SessionToken  string     `json:"sessionToken,omitempty"`
	AccessCode    string     `json:"accessCode,omitempty"`
	FirstAccessAt *time.Time `json:"firstAccessAt,omitempty"`
}

// ClearAccess forgets the code and its window. The session token is kept.
func (s *State) ClearAccess() {
	s.AccessCode = ""
	s.FirstAccessAt = nil
}

// StateStore persists State
type StateStore interface {
	Load() (*State, error)
	Save(state *State) error
}

// FileStore keeps State as a JSON file. Concurrent writers race with
// last-write-wins.
type FileStore struct {
	path string
}

// NewFileStore stores state at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file location
func (f *FileStore) Path() string {
	return f.path
}

// Load returns an empty state when the file does not exist
func (f *FileStore) Load() (*State, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt file is treated as no state
		return &State{}, nil
	}
	return &state, nil
}

// Save writes through a temp file and rename so readers never see a
// partial file
func (f *FileStore) Save(state *State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

var _ StateStore = (*FileStore)(nil)
