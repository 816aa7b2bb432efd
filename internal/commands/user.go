package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/config"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Long: `Create a user over the REST API.

The first user of a fresh instance can be created without authentication
(--no-auth); afterwards an admin API token is required. --generate-token asks
the server for an API token for the new user; --store-token saves it to a
profile.`,
	Args: cobra.NoArgs,
	RunE: runUserCreate,
}

var (
	userCreateEmail     string
	userCreatePassword  string
	userCreateName      string
	userCreateExpiresAt string
	userCreateGenToken  bool
	userCreateNoAuth    bool
	userCreateStore     string
	userCreatePrint     bool
)

func init() {
	userCreateCmd.Flags().StringVar(&userCreateEmail, "email", "", "user email")
	userCreateCmd.Flags().StringVar(&userCreatePassword, "password", "", "user password")
	userCreateCmd.Flags().StringVar(&userCreateName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userCreateExpiresAt, "expires-at", "", "account expiry timestamp")
	userCreateCmd.Flags().BoolVar(&userCreateGenToken, "generate-token", false, "request an API token for the new user")
	userCreateCmd.Flags().BoolVar(&userCreateNoAuth, "no-auth", false, "send the request without authentication")
	userCreateCmd.Flags().StringVar(&userCreateStore, "store-token", "", "profile to store the generated token in")
	userCreateCmd.Flags().BoolVar(&userCreatePrint, "print-token", false, "print only the generated token")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	_ = userCreateCmd.MarkFlagRequired("name")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfgPath, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}

	if (userCreateStore != "" || userCreatePrint) && !userCreateGenToken {
		return cliutil.InvalidArgumentf("--store-token/--print-token require --generate-token")
	}

	body := map[string]any{
		"email":    userCreateEmail,
		"password": userCreatePassword,
		"name":     userCreateName,
	}
	if userCreateExpiresAt != "" {
		body["expiresAt"] = userCreateExpiresAt
	}
	if userCreateGenToken {
		body["generateApiToken"] = true
	}

	includeAuth := !userCreateNoAuth && eff.Token != ""

	response, err := c.RequestJSON(cmd.Context(), http.MethodPost, "/api/v1/user", body, nil, includeAuth)
	if err != nil {
		return err
	}

	token := objString(response, "apiToken")

	if userCreateStore != "" {
		if token == "" {
			return cliutil.InvalidArgumentf("server response carried no apiToken to store")
		}
		cfg.ProfileMut(userCreateStore).Token = token
		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
		if !globalOpts.Quiet {
			fmt.Fprintf(os.Stderr, "Token saved to profile '%s'.\n", userCreateStore)
		}
	}

	if userCreatePrint {
		if token == "" {
			return cliutil.InvalidArgumentf("server response carried no apiToken to print")
		}
		fmt.Println(token)
		return nil
	}

	if eff.Output == output.FormatTable {
		if obj, ok := response.(map[string]any); ok {
			if user, ok := obj["user"]; ok {
				output.PrintKV(user)
				return nil
			}
		}
	}
	return printRecord(eff, response)
}
