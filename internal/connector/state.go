package connector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// State is the incremental sync bookmark.
type State struct {
	LastTS string `yaml:"last_ts"`
}

// LoadState returns an empty State when the file does not exist yet.
func LoadState(path string) (State, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read state: %w", err)
	}
	var s State
	if err := yaml.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	return s, nil
}

// SaveState replaces the state file atomically.
func SaveState(path string, s State) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
