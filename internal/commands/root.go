// Package commands wires the ztnet command tree. Each top-level command
// resolves the effective configuration from flags, environment and the
// profile store, builds a client and runs one or more API calls.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/client"
	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/config"
	"github.com/JKamsker/ztnet-cli/internal/output"
	"github.com/JKamsker/ztnet-cli/internal/version"
)

var globalOpts = config.NewGlobalOpts()

var rootCmd = &cobra.Command{
	Use:   "ztnet",
	Short: "CLI for the ZTNet network controller web UI",
	Long: `ztnet talks to a ZTNet instance over its REST API and, for operations
the REST API does not cover, over the tRPC endpoints the web UI uses.

Credentials and per-server preferences live in named profiles; see
'ztnet auth' and 'ztnet config'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the first error encountered.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&globalOpts.Host, "host", "H", "", "ZTNet base URL (overrides profile)")
	pf.StringVarP(&globalOpts.Token, "token", "t", "", "API token (overrides profile)")
	pf.StringVar(&globalOpts.Profile, "profile", "", "profile name")
	pf.StringVar(&globalOpts.Org, "org", "", "default organization (id or name)")
	pf.StringVar(&globalOpts.Network, "network", "", "default network (id or name)")
	pf.BoolVar(&globalOpts.JSON, "json", false, "shorthand for --output json")
	pf.StringVarP(&globalOpts.Output, "output", "o", "", "output format (table, json, yaml, raw)")
	pf.BoolVar(&globalOpts.NoColor, "no-color", false, "disable ANSI colors")
	pf.BoolVarP(&globalOpts.Quiet, "quiet", "q", false, "suppress informational stderr output")
	pf.CountVarP(&globalOpts.Verbose, "verbose", "v", "increase diagnostic verbosity")
	pf.StringVar(&globalOpts.Timeout, "timeout", "", "request timeout (e.g. 30s)")
	pf.IntVar(&globalOpts.Retries, "retries", -1, "retry attempts for transient failures")
	pf.BoolVar(&globalOpts.DryRun, "dry-run", false, "print the request instead of sending it")
	pf.BoolVarP(&globalOpts.Yes, "yes", "y", false, "assume yes for confirmation prompts")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(orgCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(trpcCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

// loadStore reads the profile store from its default location.
func loadStore() (string, *config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}

// resolveEffective is the common preamble of every network-facing command.
func resolveEffective() (string, *config.Config, *config.EffectiveConfig, error) {
	path, cfg, err := loadStore()
	if err != nil {
		return "", nil, nil, err
	}
	eff, err := config.Resolve(globalOpts, cfg)
	if err != nil {
		return "", nil, nil, err
	}
	return path, cfg, eff, nil
}

func clientUI(eff *config.EffectiveConfig) client.UI {
	return client.UI{Quiet: globalOpts.Quiet, NoColor: globalOpts.NoColor, Profile: eff.Profile}
}

func newClient(eff *config.EffectiveConfig) (*client.Client, error) {
	return client.New(eff.Host, eff.Token, eff.Timeout, eff.Retries, globalOpts.DryRun, clientUI(eff))
}

// newAuthedTRPC builds a tRPC client carrying the stored NextAuth session
// cookie, failing early when no session is stored.
func newAuthedTRPC(eff *config.EffectiveConfig) (*client.TRPCClient, error) {
	cookie, err := client.RequireNextAuthCookie(eff.SessionCookie, eff.DeviceCookie)
	if err != nil {
		return nil, err
	}
	trpc, err := client.NewTRPC(eff.Host, eff.Timeout, eff.Retries, globalOpts.DryRun, clientUI(eff))
	if err != nil {
		return nil, err
	}
	return trpc.WithCookie(cookie), nil
}

// printValue renders a response in the effective output format.
func printValue(eff *config.EffectiveConfig, value any) error {
	return output.Print(value, eff.Output)
}

// printRecord is printValue for single-object responses: table mode renders
// sorted key/value lines instead of falling back to JSON.
func printRecord(eff *config.EffectiveConfig, value any) error {
	if eff.Output == output.FormatTable {
		output.PrintKV(value)
		return nil
	}
	return output.Print(value, eff.Output)
}

func confirm(prompt string) (bool, error) {
	return cliutil.Confirm(prompt, globalOpts.DryRun, globalOpts.Yes, globalOpts.Quiet)
}
