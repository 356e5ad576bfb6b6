// Package config persists a ledger's connection details (remote, branch,
// local path, acquisition timing) to a YAML file, the way a deployable CLI
// needs them described once and reused across invocations.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes everything needed to open a ledger and drive its
// lease manager.
type Config struct {
	RemoteURL     string        `yaml:"remote_url"`
	RemoteName    string        `yaml:"remote_name"`
	Branch        string        `yaml:"branch"`
	LocalPath     string        `yaml:"local_path"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	LeaseDuration time.Duration `yaml:"lease_duration"`
}

// Default returns a Config with sane defaults seeded at localPath, for the
// init wizard to start from.
func Default(localPath string) *Config {
	return &Config{
		RemoteName:    "origin",
		Branch:        "main",
		LocalPath:     localPath,
		PollInterval:  2 * time.Second,
		LeaseDuration: 30 * time.Second,
	}
}

// Validate rejects a Config that cannot be used to open a ledger.
func (c *Config) Validate() error {
	if c.RemoteURL == "" {
		return errors.New("config: remote_url is required")
	}
	if c.RemoteName == "" {
		return errors.New("config: remote_name is required")
	}
	if c.Branch == "" {
		return errors.New("config: branch is required")
	}
	if c.LocalPath == "" {
		return errors.New("config: local_path is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll_interval must be positive")
	}
	if c.LeaseDuration <= 0 {
		return errors.New("config: lease_duration must be positive")
	}
	return nil
}

// Load reads and unmarshals a Config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// Save marshals c as YAML and writes it to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
