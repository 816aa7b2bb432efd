package config

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/host"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

// Hard defaults applied when neither flags, environment nor the selected
// profile provide a value.
const (
	DefaultHost    = "http://localhost:3000"
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
)

// GlobalOpts mirrors the global CLI flags handed to the resolver. Zero
// values mean "not given"; Retries uses -1 as its unset sentinel because 0
// is a meaningful retry count.
type GlobalOpts struct {
	Host    string
	Token   string
	Profile string
	Org     string
	Network string
	JSON    bool
	Output  string
	NoColor bool
	Quiet   bool
	Verbose int
	Timeout string
	Retries int
	DryRun  bool
	Yes     bool
}

// NewGlobalOpts returns a GlobalOpts with the unset sentinels in place.
func NewGlobalOpts() GlobalOpts {
	return GlobalOpts{Retries: -1}
}

// EffectiveConfig is the per-invocation merge of flags, environment,
// profile and defaults. It is never persisted.
type EffectiveConfig struct {
	Profile       string        `validate:"required"`
	Host          string        `validate:"required"`
	Token         string        `validate:"-"`
	SessionCookie string        `validate:"-"`
	DeviceCookie  string        `validate:"-"`
	Org           string        `validate:"-"`
	Network       string        `validate:"-"`
	Output        output.Format `validate:"oneof=table json yaml raw"`
	Timeout       time.Duration `validate:"gt=0"`
	Retries       int           `validate:"gte=0"`
}

// Environment variable names accepted by the resolver. Host and token each
// have a legacy second name kept for backward compatibility.
func newEnv() *viper.Viper {
	v := viper.New()
	_ = v.BindEnv("host", "ZTNET_HOST", "API_ADDRESS")
	_ = v.BindEnv("token", "ZTNET_API_TOKEN", "ZTNET_TOKEN")
	_ = v.BindEnv("profile", "ZTNET_PROFILE")
	_ = v.BindEnv("output", "ZTNET_OUTPUT")
	return v
}

var validate = validator.New()

// Resolve merges CLI flags > environment > profile fields > hard defaults
// into an EffectiveConfig. It performs no network calls.
//
// Profile selection: an explicit --profile (or ZTNET_PROFILE) wins outright.
// Otherwise, when an explicit host was given, the host-defaults table is
// consulted by canonical key, then all profiles are scanned for one whose
// stored host canonicalizes to the same key; failing that the store's active
// profile, then the literal name "default".
//
// Stored credentials (token, session/device cookies) are attached only when
// the profile's own stored host canonically matches the host finally
// selected, so overriding --host can never leak another host's credentials.
func Resolve(opts GlobalOpts, cfg *Config) (*EffectiveConfig, error) {
	env := newEnv()

	explicitProfile := cliutil.FirstNonEmpty(opts.Profile, env.GetString("profile"))
	explicitHost := cliutil.FirstNonEmpty(opts.Host, env.GetString("host"))

	var explicitHostKey string
	if explicitHost != "" {
		key, err := host.CanonicalKey(explicitHost)
		if err != nil {
			return nil, err
		}
		explicitHostKey = key
	}

	profileName, err := selectProfile(cfg, explicitProfile, explicitHostKey)
	if err != nil {
		return nil, err
	}
	profile := cfg.Profile(profileName)

	// An explicitly named profile whose stored host disagrees with an
	// explicitly given host is a user mistake, not something to resolve
	// silently.
	if explicitProfile != "" && explicitHostKey != "" {
		if profileKey, ok := host.CanonicalKeyOK(profile.Host); ok && profileKey != explicitHostKey {
			return nil, cliutil.InvalidArgumentf(
				"profile %q is configured for host %s which does not match --host %s; pass a matching profile or omit one of the flags",
				profileName, profile.Host, explicitHost)
		}
	}

	selectedHost := cliutil.FirstNonEmpty(explicitHost, profile.Host, DefaultHost)

	credentialsOK := true
	if explicitHost != "" {
		profileKey, ok := host.CanonicalKeyOK(profile.Host)
		credentialsOK = ok && profileKey == explicitHostKey
	}

	token := cliutil.FirstNonEmpty(opts.Token, env.GetString("token"))
	sessionCookie := ""
	deviceCookie := ""
	if credentialsOK {
		if token == "" {
			token = profile.Token
		}
		sessionCookie = profile.SessionCookie
		deviceCookie = profile.DeviceCookie
	}

	format, err := resolveOutput(opts, env, profile)
	if err != nil {
		return nil, err
	}

	timeout := DefaultTimeout
	if timeoutStr := cliutil.FirstNonEmpty(opts.Timeout, profile.Timeout); timeoutStr != "" {
		timeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, cliutil.InvalidArgumentf("invalid timeout value: %s", timeoutStr)
		}
	}

	retries := DefaultRetries
	switch {
	case opts.Retries >= 0:
		retries = opts.Retries
	case profile.Retries != nil:
		retries = *profile.Retries
	}

	effective := &EffectiveConfig{
		Profile:       profileName,
		Host:          selectedHost,
		Token:         token,
		SessionCookie: sessionCookie,
		DeviceCookie:  deviceCookie,
		Org:           cliutil.FirstNonEmpty(opts.Org, profile.DefaultOrg),
		Network:       cliutil.FirstNonEmpty(opts.Network, profile.DefaultNetwork),
		Output:        format,
		Timeout:       timeout,
		Retries:       retries,
	}

	if err := validate.Struct(effective); err != nil {
		return nil, cliutil.InvalidArgumentf("invalid configuration: %v", err)
	}
	return effective, nil
}

// selectProfile implements the profile-selection order. Host-defaults
// entries are validated here, at resolution time: an entry pointing at a
// missing profile or at a profile stored for a different host is reported as
// an inconsistency instead of being silently used or silently repaired.
func selectProfile(cfg *Config, explicitProfile, explicitHostKey string) (string, error) {
	if explicitProfile != "" {
		return explicitProfile, nil
	}

	if explicitHostKey != "" {
		if name, ok := cfg.HostDefaults[explicitHostKey]; ok {
			if !cfg.HasProfile(name) {
				return "", cliutil.InvalidArgumentf(
					"host default for %s references profile %q which does not exist; fix it with: ztnet config unset host_defaults.%s",
					explicitHostKey, name, explicitHostKey)
			}
			profileKey, ok := host.CanonicalKeyOK(cfg.Profile(name).Host)
			if !ok || profileKey != explicitHostKey {
				return "", cliutil.InvalidArgumentf(
					"host default for %s references profile %q whose stored host does not match; fix it with: ztnet config unset host_defaults.%s",
					explicitHostKey, name, explicitHostKey)
			}
			return name, nil
		}

		if name, ok := profileForHostKey(cfg, explicitHostKey); ok {
			return name, nil
		}
	}

	if cfg.ActiveProfile != "" {
		return cfg.ActiveProfile, nil
	}
	return "default", nil
}

// profileForHostKey scans profiles in name order so the match is
// deterministic when several profiles share a host.
func profileForHostKey(cfg *Config, hostKey string) (string, bool) {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if key, ok := host.CanonicalKeyOK(cfg.Profile(name).Host); ok && key == hostKey {
			return name, true
		}
	}
	return "", false
}

func resolveOutput(opts GlobalOpts, env *viper.Viper, profile Profile) (output.Format, error) {
	switch {
	case opts.JSON:
		return output.FormatJSON, nil
	case opts.Output != "":
		return output.ParseFormat(opts.Output)
	}
	if value := env.GetString("output"); value != "" {
		return output.ParseFormat(value)
	}
	if profile.Output != "" {
		return output.ParseFormat(profile.Output)
	}
	return output.FormatTable, nil
}
