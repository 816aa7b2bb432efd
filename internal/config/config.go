// Package config owns the on-disk profile store and the resolution of
// flags, environment and stored profiles into one effective configuration
// per CLI invocation.
//
// The store is a single YAML file holding named profiles, the active profile
// name and a host-defaults table mapping canonical host keys to profile
// names. It is read once and written back in full; there is no partial
// update and no locking, which is fine for the single-user CLI use case.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is one named credential/preference bundle. Profiles are created on
// first write and never implicitly deleted.
type Profile struct {
	Host           string `yaml:"host,omitempty"`
	Token          string `yaml:"token,omitempty"`
	SessionCookie  string `yaml:"session_cookie,omitempty"`
	DeviceCookie   string `yaml:"device_cookie,omitempty"`
	DefaultOrg     string `yaml:"default_org,omitempty"`
	DefaultNetwork string `yaml:"default_network,omitempty"`
	Output         string `yaml:"output,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`
	Retries        *int   `yaml:"retries,omitempty"`
}

// Config is the full content of the config store.
type Config struct {
	ActiveProfile string              `yaml:"active_profile,omitempty"`
	Profiles      map[string]*Profile `yaml:"profiles,omitempty"`
	HostDefaults  map[string]string   `yaml:"host_defaults,omitempty"`
}

// Profile returns the named profile, or an empty one when it does not exist.
func (c *Config) Profile(name string) Profile {
	if p, ok := c.Profiles[name]; ok && p != nil {
		return *p
	}
	return Profile{}
}

// HasProfile reports whether the named profile exists in the store.
func (c *Config) HasProfile(name string) bool {
	_, ok := c.Profiles[name]
	return ok
}

// ProfileMut returns the named profile for mutation, creating it on first
// use.
func (c *Config) ProfileMut(name string) *Profile {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	if p, ok := c.Profiles[name]; ok && p != nil {
		return p
	}
	p := &Profile{}
	c.Profiles[name] = p
	return p
}

// DefaultPath returns the platform config file location, e.g.
// ~/.config/ztnet/config.yaml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, "ztnet", "config.yaml"), nil
}

// Load reads the config store. A missing file yields an empty default
// config, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save rewrites the whole config store, creating parent directories as
// needed. The file holds credentials, so it is not group/world readable.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
