// Package settings manages persistent user settings for the genie CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences.
type Settings struct {
	// Inventory is the device inventory file used when --inventory is
	// not specified.
	Inventory string `json:"inventory,omitempty"`

	// Username is the default device login.
	Username string `json:"username,omitempty"`

	// Workers overrides the default session concurrency bound.
	Workers int `json:"workers,omitempty"`

	// TemplateDir overrides the default user template directory.
	TemplateDir string `json:"template_dir,omitempty"`

	// HistoryPath overrides the default history file location.
	HistoryPath string `json:"history_path,omitempty"`

	// HistoryRedis is "host:port" of a shared Redis history backend.
	// Empty keeps history in the local file.
	HistoryRedis string `json:"history_redis,omitempty"`

	// AutoApprove is the highest finding severity applied without a
	// prompt ("low", "medium", "high").
	AutoApprove string `json:"auto_approve,omitempty"`
}

// Dir returns the genie config directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".genie"
	}
	return filepath.Join(home, ".genie")
}

// DefaultSettingsPath returns the default path for the settings file.
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// empty settings, not an error.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetTemplateDir returns the template directory (with fallback).
func (s *Settings) GetTemplateDir() string {
	if s.TemplateDir != "" {
		return s.TemplateDir
	}
	return filepath.Join(Dir(), "templates")
}

// GetHistoryPath returns the history file location (with fallback).
func (s *Settings) GetHistoryPath() string {
	if s.HistoryPath != "" {
		return s.HistoryPath
	}
	return filepath.Join(Dir(), "history.jsonl")
}

// Set assigns a settings key by name, parsing the value as needed.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "inventory":
		s.Inventory = value
	case "username":
		s.Username = value
	case "workers":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("workers must be a positive integer, got %q", value)
		}
		s.Workers = n
	case "template_dir":
		s.TemplateDir = value
	case "history_path":
		s.HistoryPath = value
	case "history_redis":
		s.HistoryRedis = value
	case "auto_approve":
		switch value {
		case "low", "medium", "high":
			s.AutoApprove = value
		default:
			return fmt.Errorf("auto_approve must be low, medium, or high, got %q", value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Get returns a settings value by name.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "inventory":
		return s.Inventory, nil
	case "username":
		return s.Username, nil
	case "workers":
		if s.Workers == 0 {
			return "", nil
		}
		return fmt.Sprintf("%d", s.Workers), nil
	case "template_dir":
		return s.TemplateDir, nil
	case "history_path":
		return s.HistoryPath, nil
	case "history_redis":
		return s.HistoryRedis, nil
	case "auto_approve":
		return s.AutoApprove, nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"inventory",
		"username",
		"workers",
		"template_dir",
		"history_path",
		"history_redis",
		"auto_approve",
	}
}

// Clear resets all settings to defaults.
func (s *Settings) Clear() {
	*s = Settings{}
}
