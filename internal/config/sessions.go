package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ssohub/internal/connection"
	"ssohub/pkg/logging"
)

// SessionProfile is one sso-session entry in the user configuration.
type SessionProfile struct {
	Name     string   `yaml:"name"`
	StartURL string   `yaml:"startUrl"`
	Region   string   `yaml:"region"`
	Scopes   []string `yaml:"scopes,omitempty"`
}

// Profile converts the session entry to a connection profile.
func (s SessionProfile) Profile() connection.Profile {
	return connection.Profile{
		Kind:        connection.KindProfile,
		SsoRegion:   s.Region,
		StartURL:    s.StartURL,
		Scopes:      s.Scopes,
		SessionName: s.Name,
	}
}

type sessionsFile struct {
	Sessions []SessionProfile `yaml:"ssoSessions"`
}

// LoadSessions reads the sso-session profiles from path. A missing file
// yields no sessions; malformed yaml is an error.
func LoadSessions(path string) ([]SessionProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No session file at %s", path)
			return nil, nil
		}
		return nil, fmt.Errorf("reading session file %s: %w", path, err)
	}

	var file sessionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	logging.Debug("Config", "Loaded %d sessions from %s", len(file.Sessions), path)
	return file.Sessions, nil
}
