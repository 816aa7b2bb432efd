package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKamsker/ztnet-cli/internal/config"
)

func TestConfigKeyRoundTrip(t *testing.T) {
	cfg := &config.Config{}

	require.NoError(t, setConfigKey(cfg, "active_profile", "prod"))
	require.NoError(t, setConfigKey(cfg, "profiles.prod.host", "ZTNET.Example.com/"))
	require.NoError(t, setConfigKey(cfg, "profiles.prod.token", "tok"))
	require.NoError(t, setConfigKey(cfg, "profiles.prod.output", "yml"))
	require.NoError(t, setConfigKey(cfg, "profiles.prod.timeout", "45s"))
	require.NoError(t, setConfigKey(cfg, "profiles.prod.retries", "2"))
	require.NoError(t, setConfigKey(cfg, "host_defaults.https://ztnet.example.com:443", "prod"))

	value, err := getConfigKey(cfg, "active_profile")
	require.NoError(t, err)
	assert.Equal(t, "prod", value)

	value, err = getConfigKey(cfg, "profiles.prod.host")
	require.NoError(t, err)
	assert.Equal(t, "https://ztnet.example.com", value, "host writes go through the normalizer")

	value, err = getConfigKey(cfg, "profiles.prod.output")
	require.NoError(t, err)
	assert.Equal(t, "yaml", value)

	value, err = getConfigKey(cfg, "host_defaults.HTTPS://ztnet.example.com")
	require.NoError(t, err)
	assert.Equal(t, "prod", value, "host-defaults keys canonicalize on read and write")

	require.NoError(t, unsetConfigKey(cfg, "profiles.prod.token"))
	value, err = getConfigKey(cfg, "profiles.prod.token")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, unsetConfigKey(cfg, "host_defaults.https://ztnet.example.com"))
	assert.Empty(t, cfg.HostDefaults)
}

func TestConfigKeyValidation(t *testing.T) {
	cfg := &config.Config{}

	assert.Error(t, setConfigKey(cfg, "profiles.p.timeout", "soon"))
	assert.Error(t, setConfigKey(cfg, "profiles.p.retries", "-1"))
	assert.Error(t, setConfigKey(cfg, "profiles.p.output", "xml"))
	assert.Error(t, setConfigKey(cfg, "profiles.p.host", "ftp://example.com"))
	assert.Error(t, setConfigKey(cfg, "nonsense", "x"))
	assert.Error(t, setConfigKey(cfg, "profiles.p.bogus", "x"))

	_, err := getConfigKey(cfg, "nonsense.key")
	assert.Error(t, err)
}

func TestFilterNetworkList(t *testing.T) {
	nets := []any{
		map[string]any{"id": "1", "name": "homelab", "private": true},
		map[string]any{"id": "2", "name": "office", "private": false},
		map[string]any{"id": "3", "nwname": "home-backup", "private": true},
	}

	filtered := filterNetworkList(nets, "name~=home")
	require.Len(t, filtered, 2)

	filtered = filterNetworkList(nets, "private==true")
	require.Len(t, filtered, 2)

	filtered = filterNetworkList(nets, "name~=home, private==false")
	assert.Empty(t, filtered)

	assert.Equal(t, "scalar", filterNetworkList("scalar", "name~=x"), "non-arrays pass through")
}

func TestParseHTTPMethod(t *testing.T) {
	method, err := parseHTTPMethod(" get ")
	require.NoError(t, err)
	assert.Equal(t, "GET", method)

	_, err = parseHTTPMethod("FETCH")
	assert.Error(t, err)
}

func TestSetCookieHelpers(t *testing.T) {
	setCookies := []string{
		"next-auth.csrf-token=abc123; Path=/; HttpOnly",
		"next-auth.callback-url=%2F; Path=/",
	}
	assert.Equal(t,
		"next-auth.csrf-token=abc123; next-auth.callback-url=%2F",
		setCookieToCookieHeader(setCookies))

	cookies := []string{
		"next-auth.session-token=sess-val; Path=/; HttpOnly",
		"next-auth.did-token=dev-val; Path=/",
	}
	assert.Equal(t, "sess-val", extractCookieValue(cookies, "next-auth.session-token"))
	assert.Equal(t, "dev-val", extractCookieValue(cookies, "next-auth.did-token"))
	assert.Empty(t, extractCookieValue(cookies, "__Secure-next-auth.session-token"))
}

func TestLoginErrorFromLocation(t *testing.T) {
	assert.Equal(t, "CredentialsSignin",
		loginErrorFromLocation("https://z.example.com/auth/login?error=CredentialsSignin"))
	assert.Empty(t, loginErrorFromLocation("https://z.example.com/network"))
	assert.Empty(t, loginErrorFromLocation(""))
}

func TestNetworkIDExtraction(t *testing.T) {
	assert.Equal(t, "abc", networkID(map[string]any{"id": "abc"}))
	assert.Equal(t, "def", networkID(map[string]any{"nwid": "def"}))
	assert.Empty(t, networkID("not an object"))
}
