package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Instance administration (session auth)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runAdminUsers,
}

var adminUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage one user",
}

var adminUserGetCmd = &cobra.Command{
	Use:   "get USER",
	Short: "Show one user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminUserGet,
}

var adminUserDeleteCmd = &cobra.Command{
	Use:   "delete USER",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminUserDelete,
}

var adminUserUpdateCmd = &cobra.Command{
	Use:   "update USER",
	Short: "Change a user's role or active status",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminUserUpdate,
}

var adminSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage instance settings",
}

var adminSettingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show instance settings",
	Args:  cobra.NoArgs,
	RunE:  runAdminSettingsGet,
}

var adminSettingsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update instance settings",
	Args:  cobra.NoArgs,
	RunE:  runAdminSettingsUpdate,
}

var (
	adminUsersAdmins        bool
	adminUserRole           string
	adminUserActive         bool
	adminUserInactive       bool
	adminEnableRegistration bool
	adminDisableRegist      bool
	adminSiteName           string
	adminWelcomeTitle       string
	adminWelcomeBody        string
)

func init() {
	adminUsersCmd.Flags().BoolVar(&adminUsersAdmins, "admins", false, "only admin users")

	adminUserUpdateCmd.Flags().StringVar(&adminUserRole, "role", "", "new role (USER or ADMIN)")
	adminUserUpdateCmd.Flags().BoolVar(&adminUserActive, "active", false, "activate the account")
	adminUserUpdateCmd.Flags().BoolVar(&adminUserInactive, "inactive", false, "deactivate the account")

	adminSettingsUpdateCmd.Flags().BoolVar(&adminEnableRegistration, "enable-registration", false, "allow self registration")
	adminSettingsUpdateCmd.Flags().BoolVar(&adminDisableRegist, "disable-registration", false, "disallow self registration")
	adminSettingsUpdateCmd.Flags().StringVar(&adminSiteName, "site-name", "", "site name")
	adminSettingsUpdateCmd.Flags().StringVar(&adminWelcomeTitle, "welcome-title", "", "welcome message title")
	adminSettingsUpdateCmd.Flags().StringVar(&adminWelcomeBody, "welcome-body", "", "welcome message body")

	adminUserCmd.AddCommand(adminUserGetCmd)
	adminUserCmd.AddCommand(adminUserDeleteCmd)
	adminUserCmd.AddCommand(adminUserUpdateCmd)

	adminSettingsCmd.AddCommand(adminSettingsGetCmd)
	adminSettingsCmd.AddCommand(adminSettingsUpdateCmd)

	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminUserCmd)
	adminCmd.AddCommand(adminSettingsCmd)
}

func runAdminUsers(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}

	response, err := trpc.Call(cmd.Context(), "admin.getUsers", map[string]any{"isAdmin": adminUsersAdmins})
	if err != nil {
		return err
	}
	return printValue(eff, response)
}

func runAdminUserGet(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}

	response, err := trpc.Call(cmd.Context(), "admin.getUser", map[string]any{"userId": args[0]})
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runAdminUserDelete(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}

	ok, err := confirm(fmt.Sprintf("Delete user '%s'?", args[0]))
	if err != nil || !ok {
		return err
	}

	response, err := trpc.Call(cmd.Context(), "admin.deleteUser", map[string]any{"id": args[0]})
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runAdminUserUpdate(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if adminUserRole == "" && !adminUserActive && !adminUserInactive {
		return cliutil.InvalidArgumentf("no update fields provided (use --role and/or --active/--inactive)")
	}

	result := map[string]any{}

	if adminUserRole != "" {
		response, err := trpc.Call(ctx, "admin.changeRole", map[string]any{"id": args[0], "role": adminUserRole})
		if err != nil {
			return err
		}
		result["role"] = response
	}

	if adminUserActive || adminUserInactive {
		response, err := trpc.Call(ctx, "admin.updateUser", map[string]any{
			"id":     args[0],
			"params": map[string]any{"isActive": adminUserActive},
		})
		if err != nil {
			return err
		}
		result["status"] = response
	}

	if eff.Output == output.FormatTable && len(result) == 0 {
		fmt.Println("OK")
		return nil
	}
	return printRecord(eff, result)
}

func runAdminSettingsGet(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}

	response, err := trpc.Call(cmd.Context(), "settings.getAllOptions", nil)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runAdminSettingsUpdate(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}

	input := map[string]any{}
	if adminEnableRegistration {
		input["enableRegistration"] = true
	} else if adminDisableRegist {
		input["enableRegistration"] = false
	}
	if adminSiteName != "" {
		input["siteName"] = adminSiteName
	}
	if adminWelcomeTitle != "" {
		input["welcomeMessageTitle"] = adminWelcomeTitle
	}
	if adminWelcomeBody != "" {
		input["welcomeMessageBody"] = adminWelcomeBody
	}
	if len(input) == 0 {
		return cliutil.InvalidArgumentf("no update fields provided")
	}

	response, err := trpc.Call(cmd.Context(), "admin.updateGlobalOptions", input)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}
