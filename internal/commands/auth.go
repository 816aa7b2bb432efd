package commands

import (
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/config"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials and sessions",
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token [TOKEN]",
	Short: "Store an API token in a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthSetToken,
}

var authUnsetTokenCmd = &cobra.Command{
	Use:   "unset-token",
	Short: "Remove the stored API token from a profile",
	Args:  cobra.NoArgs,
	RunE:  runAuthUnsetToken,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

var authTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the stored API token against the server",
	Args:  cobra.NoArgs,
	RunE:  runAuthTest,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password and store the session cookie",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session from a profile",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List and switch profiles",
}

var authProfilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured profiles",
	Args:  cobra.NoArgs,
	RunE:  runAuthProfilesList,
}

var authProfilesUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Set the active profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthProfilesUse,
}

var (
	authTokenProfile  string
	authTokenStdin    bool
	authLoginEmail    string
	authLoginPassword string
	authLoginPwStdin  bool
	authLoginTOTP     string
)

func init() {
	authSetTokenCmd.Flags().StringVar(&authTokenProfile, "profile-name", "", "target profile (default: effective profile)")
	authSetTokenCmd.Flags().BoolVar(&authTokenStdin, "stdin", false, "read the token from stdin")
	authUnsetTokenCmd.Flags().StringVar(&authTokenProfile, "profile-name", "", "target profile (default: effective profile)")

	authLoginCmd.Flags().StringVar(&authLoginEmail, "email", "", "account email")
	authLoginCmd.Flags().StringVar(&authLoginPassword, "password", "", "account password")
	authLoginCmd.Flags().BoolVar(&authLoginPwStdin, "password-stdin", false, "read the password from stdin")
	authLoginCmd.Flags().StringVar(&authLoginTOTP, "totp", "", "two-factor code")
	_ = authLoginCmd.MarkFlagRequired("email")

	authProfilesCmd.AddCommand(authProfilesListCmd)
	authProfilesCmd.AddCommand(authProfilesUseCmd)

	authCmd.AddCommand(authSetTokenCmd)
	authCmd.AddCommand(authUnsetTokenCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authTestCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authProfilesCmd)
}

func runAuthSetToken(cmd *cobra.Command, args []string) error {
	path, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	if authTokenStdin && len(args) > 0 {
		return cliutil.InvalidArgumentf("cannot combine --stdin with a positional TOKEN")
	}

	var token string
	switch {
	case authTokenStdin:
		token, err = cliutil.ReadStdinTrimmed()
		if err != nil {
			return err
		}
	case len(args) > 0:
		token = args[0]
	default:
		return cliutil.InvalidArgumentf("missing TOKEN (or pass --stdin)")
	}
	if token == "" {
		return cliutil.InvalidArgumentf("token cannot be empty")
	}

	profile := cliutil.FirstNonEmpty(authTokenProfile, eff.Profile)
	cfg.ProfileMut(profile).Token = token
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Token saved to profile '%s'.\n", profile)
	}
	return nil
}

func runAuthUnsetToken(cmd *cobra.Command, args []string) error {
	path, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	profile := cliutil.FirstNonEmpty(authTokenProfile, eff.Profile)
	cfg.ProfileMut(profile).Token = ""
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Token removed from profile '%s'.\n", profile)
	}
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	var token any
	if eff.Token != "" {
		token = cliutil.RedactToken(eff.Token)
	}
	session := "none"
	if eff.SessionCookie != "" {
		session = "active"
	}
	device := "none"
	if eff.DeviceCookie != "" {
		device = "present"
	}

	return printRecord(eff, map[string]any{
		"profile": eff.Profile,
		"host":    eff.Host,
		"token":   token,
		"session": session,
		"device":  device,
		"org":     eff.Org,
		"network": eff.Network,
		"output":  eff.Output.String(),
		"timeout": eff.Timeout.String(),
		"retries": eff.Retries,
	})
}

func runAuthTest(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}

	path := "/api/v1/network"
	if eff.Org != "" {
		path = "/api/v1/org"
	}

	response, err := c.RequestJSON(cmd.Context(), http.MethodGet, path, nil, nil, true)
	if err != nil {
		return err
	}

	if eff.Output == output.FormatTable {
		fmt.Println("OK")
		return nil
	}
	return printValue(eff, response)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	path, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	profile := cfg.ProfileMut(eff.Profile)
	profile.SessionCookie = ""
	profile.DeviceCookie = ""
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Session cleared from profile '%s'.\n", eff.Profile)
	}
	return nil
}

func runAuthProfilesList(cmd *cobra.Command, args []string) error {
	_, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	return printRecord(eff, map[string]any{
		"active_profile": cfg.ActiveProfile,
		"profiles":       names,
	})
}

func runAuthProfilesUse(cmd *cobra.Command, args []string) error {
	path, cfg, err := loadStore()
	if err != nil {
		return err
	}

	name := args[0]
	cfg.ActiveProfile = name
	cfg.ProfileMut(name)
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Active profile set to '%s'.\n", name)
	}
	return nil
}
