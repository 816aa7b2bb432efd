package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.ActiveProfile)
	assert.Empty(t, cfg.Profiles)
	assert.Empty(t, cfg.HostDefaults)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ztnet", "config.yaml")

	retries := 5
	cfg := &Config{
		ActiveProfile: "prod",
		Profiles: map[string]*Profile{
			"prod": {
				Host:           "https://ztnet.example.com",
				Token:          "tok-123",
				SessionCookie:  "sess",
				DeviceCookie:   "dev",
				DefaultOrg:     "acme",
				DefaultNetwork: "homelab",
				Output:         "json",
				Timeout:        "45s",
				Retries:        &retries,
			},
			"local": {Host: "http://localhost:3000"},
		},
		HostDefaults: map[string]string{
			"https://ztnet.example.com": "prod",
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveRestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, &Config{ActiveProfile: "x"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [not: a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestProfileAccessors(t *testing.T) {
	cfg := &Config{}

	assert.False(t, cfg.HasProfile("default"))
	assert.Equal(t, Profile{}, cfg.Profile("default"))

	p := cfg.ProfileMut("default")
	p.Token = "tok"
	assert.True(t, cfg.HasProfile("default"))
	assert.Equal(t, "tok", cfg.Profile("default").Token)

	// Repeated lookups return the same instance.
	cfg.ProfileMut("default").Host = "http://localhost:3000"
	assert.Equal(t, "tok", cfg.Profiles["default"].Token)
	assert.Equal(t, "http://localhost:3000", cfg.Profiles["default"].Host)
}
