// Package config handles the two persistence surfaces the CLI needs: a
// small JSON file recording registration state, and viper-backed binding of
// environment variables onto process settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// NodeConfig is the single JSON file persisted across `register-user`,
// `register-node`, and `logout` invocations.
type NodeConfig struct {
	UserID        string `json:"user_id,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	NodeID        string `json:"node_id,omitempty"`
	Environment   string `json:"environment,omitempty"`
}

// Path resolves the config file location under the user's config directory.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "nexus-prover", "config.json"), nil
}

// Load reads and parses the config file. A missing file returns a zero
// NodeConfig and no error; invalid JSON is reported.
func Load(path string) (NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NodeConfig{}, nil
		}
		return NodeConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg NodeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return NodeConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as JSON, creating any missing parent directories.
func Save(path string, cfg NodeConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Delete removes the config file if present; absence is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("config: delete %s: %w", path, err)
	}
	return nil
}
