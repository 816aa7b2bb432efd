package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/config"
	"github.com/JKamsker/ztnet-cli/internal/host"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the profile store",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Read one config key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Write one config key",
	Long: `Write one config key.

Supported keys: active_profile, profiles.<name>.<field> and
host_defaults.<canonical-host>. The bare key 'host' targets the effective
profile's host and is normalized before storing.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove one config key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration and where it came from",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	_, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	value, err := getConfigKey(cfg, args[0])
	if err != nil {
		return err
	}

	if eff.Output == output.FormatTable {
		fmt.Println(output.Scalar(value))
		return nil
	}
	return printValue(eff, value)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	key := args[0]
	if key == "host" {
		key = "profiles." + eff.Profile + ".host"
	}

	if err := setConfigKey(cfg, key, args[1]); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Set %s.\n", key)
	}
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	path, cfg, err := loadStore()
	if err != nil {
		return err
	}

	if err := unsetConfigKey(cfg, args[0]); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Unset %s.\n", args[0])
	}
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	path, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	var token any
	if eff.Token != "" {
		token = cliutil.RedactToken(eff.Token)
	}

	return printRecord(eff, map[string]any{
		"config_path": path,
		"profile":     eff.Profile,
		"host":        eff.Host,
		"token":       token,
		"org":         eff.Org,
		"network":     eff.Network,
		"output":      eff.Output.String(),
		"timeout":     eff.Timeout.String(),
		"retries":     eff.Retries,
	})
}

func getConfigKey(cfg *config.Config, key string) (any, error) {
	if hostKey, ok := strings.CutPrefix(key, "host_defaults."); ok {
		canonical, err := host.CanonicalKey(hostKey)
		if err != nil {
			return nil, err
		}
		if name, ok := cfg.HostDefaults[canonical]; ok {
			return name, nil
		}
		return nil, nil
	}

	parts := strings.Split(key, ".")
	switch {
	case key == "active_profile":
		return emptyAsNil(cfg.ActiveProfile), nil
	case key == "host_defaults":
		return hostDefaultsValue(cfg), nil
	case key == "profiles":
		profiles := make(map[string]any, len(cfg.Profiles))
		for name := range cfg.Profiles {
			profiles[name] = profileValue(cfg.Profile(name))
		}
		return profiles, nil
	case len(parts) == 2 && parts[0] == "profiles":
		return profileValue(cfg.Profile(parts[1])), nil
	case len(parts) == 3 && parts[0] == "profiles":
		p := cfg.Profile(parts[1])
		switch parts[2] {
		case "host":
			return emptyAsNil(p.Host), nil
		case "token":
			return emptyAsNil(p.Token), nil
		case "default_org":
			return emptyAsNil(p.DefaultOrg), nil
		case "default_network":
			return emptyAsNil(p.DefaultNetwork), nil
		case "output":
			return emptyAsNil(p.Output), nil
		case "timeout":
			return emptyAsNil(p.Timeout), nil
		case "retries":
			if p.Retries == nil {
				return nil, nil
			}
			return *p.Retries, nil
		}
	}
	return nil, cliutil.InvalidArgumentf("unsupported key: %s", key)
}

func setConfigKey(cfg *config.Config, key, value string) error {
	if hostKey, ok := strings.CutPrefix(key, "host_defaults."); ok {
		canonical, err := host.CanonicalKey(hostKey)
		if err != nil {
			return err
		}
		if cfg.HostDefaults == nil {
			cfg.HostDefaults = make(map[string]string)
		}
		cfg.HostDefaults[canonical] = value
		return nil
	}

	parts := strings.Split(key, ".")
	switch {
	case key == "active_profile":
		cfg.ActiveProfile = value
		return nil
	case len(parts) == 3 && parts[0] == "profiles":
		p := cfg.ProfileMut(parts[1])
		switch parts[2] {
		case "host":
			normalized, err := host.Normalize(value)
			if err != nil {
				return err
			}
			p.Host = normalized
			return nil
		case "token":
			p.Token = value
			return nil
		case "default_org":
			p.DefaultOrg = value
			return nil
		case "default_network":
			p.DefaultNetwork = value
			return nil
		case "output":
			format, err := output.ParseFormat(value)
			if err != nil {
				return err
			}
			p.Output = format.String()
			return nil
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return cliutil.InvalidArgumentf("invalid timeout value: %s", value)
			}
			p.Timeout = value
			return nil
		case "retries":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return cliutil.InvalidArgumentf("invalid retries value: %s", value)
			}
			p.Retries = &n
			return nil
		}
	}
	return cliutil.InvalidArgumentf("unsupported key: %s", key)
}

func unsetConfigKey(cfg *config.Config, key string) error {
	if hostKey, ok := strings.CutPrefix(key, "host_defaults."); ok {
		canonical, err := host.CanonicalKey(hostKey)
		if err != nil {
			// Stale entries may fail canonicalization; allow removing them
			// by the literal key.
			canonical = hostKey
		}
		delete(cfg.HostDefaults, canonical)
		delete(cfg.HostDefaults, hostKey)
		return nil
	}

	parts := strings.Split(key, ".")
	switch {
	case key == "active_profile":
		cfg.ActiveProfile = ""
		return nil
	case len(parts) == 3 && parts[0] == "profiles":
		p := cfg.ProfileMut(parts[1])
		switch parts[2] {
		case "host":
			p.Host = ""
			return nil
		case "token":
			p.Token = ""
			return nil
		case "default_org":
			p.DefaultOrg = ""
			return nil
		case "default_network":
			p.DefaultNetwork = ""
			return nil
		case "output":
			p.Output = ""
			return nil
		case "timeout":
			p.Timeout = ""
			return nil
		case "retries":
			p.Retries = nil
			return nil
		}
	}
	return cliutil.InvalidArgumentf("unsupported key: %s", key)
}

func profileValue(p config.Profile) map[string]any {
	value := map[string]any{
		"host":            emptyAsNil(p.Host),
		"token":           emptyAsNil(p.Token),
		"default_org":     emptyAsNil(p.DefaultOrg),
		"default_network": emptyAsNil(p.DefaultNetwork),
		"output":          emptyAsNil(p.Output),
		"timeout":         emptyAsNil(p.Timeout),
	}
	if p.Retries != nil {
		value["retries"] = *p.Retries
	} else {
		value["retries"] = nil
	}
	return value
}

func hostDefaultsValue(cfg *config.Config) map[string]any {
	value := make(map[string]any, len(cfg.HostDefaults))
	for k, v := range cfg.HostDefaults {
		value[k] = v
	}
	return value
}

func emptyAsNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
