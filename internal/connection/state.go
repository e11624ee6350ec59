package connection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ssohub/pkg/logging"
)

// State is the persisted form of the registry: an ordered list of
// connection profiles. Identity fields only; no credential material.
type State struct {
	Profiles []Profile `yaml:"connections"`
}

// LoadStateFile reads persisted state from path. A missing file yields an
// empty state, not an error.
func LoadStateFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Registry", "No connection state at %s, starting empty", path)
			return State{}, nil
		}
		return State{}, fmt.Errorf("reading connection state from %s: %w", path, err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing connection state from %s: %w", path, err)
	}
	return state, nil
}

// SaveStateFile writes persisted state to path, creating parent
// directories as needed. The file is owner read/write only.
func SaveStateFile(path string, state State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding connection state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing connection state to %s: %w", path, err)
	}
	return nil
}
