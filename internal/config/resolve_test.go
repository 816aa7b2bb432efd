package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

// clearEnv blanks every variable the resolver reads so ambient shell state
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"ZTNET_HOST", "API_ADDRESS", "ZTNET_API_TOKEN", "ZTNET_TOKEN", "ZTNET_PROFILE", "ZTNET_OUTPUT"} {
		t.Setenv(name, "")
	}
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)

	eff, err := Resolve(NewGlobalOpts(), &Config{})
	require.NoError(t, err)

	assert.Equal(t, "default", eff.Profile)
	assert.Equal(t, DefaultHost, eff.Host)
	assert.Empty(t, eff.Token)
	assert.Equal(t, output.FormatTable, eff.Output)
	assert.Equal(t, DefaultTimeout, eff.Timeout)
	assert.Equal(t, DefaultRetries, eff.Retries)
}

func TestResolvePrecedenceFlagsOverEnvOverProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZTNET_API_TOKEN", "env-token")

	cfg := &Config{
		ActiveProfile: "prod",
		Profiles: map[string]*Profile{
			"prod": {Host: "https://ztnet.example.com", Token: "profile-token", Output: "yaml"},
		},
	}

	eff, err := Resolve(NewGlobalOpts(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "env-token", eff.Token, "env beats profile")
	assert.Equal(t, output.FormatYAML, eff.Output)

	opts := NewGlobalOpts()
	opts.Token = "flag-token"
	opts.JSON = true
	eff, err = Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, "flag-token", eff.Token, "flag beats env")
	assert.Equal(t, output.FormatJSON, eff.Output, "--json beats profile output")
}

func TestResolveEnvHostAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ADDRESS", "https://alias.example.com")

	eff, err := Resolve(NewGlobalOpts(), &Config{})
	require.NoError(t, err)
	assert.Equal(t, "https://alias.example.com", eff.Host)
}

func TestResolveCredentialIsolation(t *testing.T) {
	clearEnv(t)

	cfg := &Config{
		ActiveProfile: "prod",
		Profiles: map[string]*Profile{
			"prod": {Host: "https://ztnet.example.com", Token: "prod-token", SessionCookie: "sess"},
		},
	}

	// Same origin, different spelling: credentials attach.
	opts := NewGlobalOpts()
	opts.Host = "https://ztnet.example.com:443/"
	eff, err := Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, "prod-token", eff.Token)
	assert.Equal(t, "sess", eff.SessionCookie)

	// Different host: stored credentials must not leak.
	opts = NewGlobalOpts()
	opts.Host = "https://other.example.com"
	eff, err = Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Empty(t, eff.Token)
	assert.Empty(t, eff.SessionCookie)
	assert.Equal(t, "https://other.example.com", eff.Host)
}

func TestResolveExplicitProfileHostConflict(t *testing.T) {
	clearEnv(t)

	cfg := &Config{
		Profiles: map[string]*Profile{
			"prod": {Host: "https://ztnet.example.com", Token: "prod-token"},
		},
	}

	opts := NewGlobalOpts()
	opts.Profile = "prod"
	opts.Host = "https://other.example.com"
	_, err := Resolve(opts, cfg)

	var invalidArg *cliutil.InvalidArgumentError
	require.ErrorAs(t, err, &invalidArg)
	assert.Contains(t, invalidArg.Msg, "prod")
}

func TestResolveHostSelectsMatchingProfile(t *testing.T) {
	clearEnv(t)

	cfg := &Config{
		ActiveProfile: "local",
		Profiles: map[string]*Profile{
			"local": {Host: "http://localhost:3000", Token: "local-token"},
			"prod":  {Host: "https://ztnet.example.com", Token: "prod-token"},
		},
	}

	opts := NewGlobalOpts()
	opts.Host = "https://ztnet.example.com"
	eff, err := Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, "prod", eff.Profile)
	assert.Equal(t, "prod-token", eff.Token)
}

func TestResolveHostDefaultsTable(t *testing.T) {
	clearEnv(t)

	cfg := &Config{
		Profiles: map[string]*Profile{
			"a": {Host: "https://ztnet.example.com", Token: "a-token"},
			"b": {Host: "https://ztnet.example.com", Token: "b-token"},
		},
		HostDefaults: map[string]string{
			"https://ztnet.example.com": "b",
		},
	}

	opts := NewGlobalOpts()
	opts.Host = "https://ztnet.example.com"
	eff, err := Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, "b", eff.Profile, "host-defaults entry beats name-order scan")
	assert.Equal(t, "b-token", eff.Token)
}

func TestResolveHostDefaultsValidation(t *testing.T) {
	clearEnv(t)

	t.Run("missing profile", func(t *testing.T) {
		cfg := &Config{
			HostDefaults: map[string]string{"https://ztnet.example.com": "ghost"},
		}
		opts := NewGlobalOpts()
		opts.Host = "https://ztnet.example.com"
		_, err := Resolve(opts, cfg)

		var invalidArg *cliutil.InvalidArgumentError
		require.ErrorAs(t, err, &invalidArg)
		assert.Contains(t, invalidArg.Msg, "host_defaults.https://ztnet.example.com")
	})

	t.Run("profile stored for another host", func(t *testing.T) {
		cfg := &Config{
			Profiles: map[string]*Profile{
				"prod": {Host: "https://other.example.com"},
			},
			HostDefaults: map[string]string{"https://ztnet.example.com": "prod"},
		}
		opts := NewGlobalOpts()
		opts.Host = "https://ztnet.example.com"
		_, err := Resolve(opts, cfg)

		var invalidArg *cliutil.InvalidArgumentError
		require.ErrorAs(t, err, &invalidArg)
		assert.Contains(t, invalidArg.Msg, "does not match")
	})
}

func TestResolveDeterministicProfileScan(t *testing.T) {
	clearEnv(t)

	cfg := &Config{
		Profiles: map[string]*Profile{
			"zeta":  {Host: "https://ztnet.example.com", Token: "z"},
			"alpha": {Host: "https://ztnet.example.com", Token: "a"},
		},
	}

	opts := NewGlobalOpts()
	opts.Host = "https://ztnet.example.com"
	for i := 0; i < 5; i++ {
		eff, err := Resolve(opts, cfg)
		require.NoError(t, err)
		assert.Equal(t, "alpha", eff.Profile)
	}
}

func TestResolveTimeoutAndRetries(t *testing.T) {
	clearEnv(t)

	retries := 7
	cfg := &Config{
		ActiveProfile: "p",
		Profiles: map[string]*Profile{
			"p": {Timeout: "45s", Retries: &retries},
		},
	}

	eff, err := Resolve(NewGlobalOpts(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, eff.Timeout)
	assert.Equal(t, 7, eff.Retries)

	opts := NewGlobalOpts()
	opts.Timeout = "5s"
	opts.Retries = 0
	eff, err = Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, eff.Timeout)
	assert.Equal(t, 0, eff.Retries, "explicit zero retries is honored")

	opts = NewGlobalOpts()
	opts.Timeout = "not-a-duration"
	_, err = Resolve(opts, cfg)
	var invalidArg *cliutil.InvalidArgumentError
	assert.ErrorAs(t, err, &invalidArg)
}

func TestResolveRejectsInvalidExplicitHost(t *testing.T) {
	clearEnv(t)

	opts := NewGlobalOpts()
	opts.Host = "ftp://example.com"
	_, err := Resolve(opts, &Config{})
	var invalidArg *cliutil.InvalidArgumentError
	assert.ErrorAs(t, err, &invalidArg)
}

func TestResolveOutputSources(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZTNET_OUTPUT", "raw")

	cfg := &Config{
		ActiveProfile: "p",
		Profiles:      map[string]*Profile{"p": {Output: "yaml"}},
	}

	eff, err := Resolve(NewGlobalOpts(), cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatRaw, eff.Output, "env beats profile")

	opts := NewGlobalOpts()
	opts.Output = "json"
	eff, err = Resolve(opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, eff.Output)

	opts = NewGlobalOpts()
	opts.Output = "bogus"
	_, err = Resolve(opts, cfg)
	assert.Error(t, err)
}
