package commands

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/client"
	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

var trpcCmd = &cobra.Command{
	Use:   "trpc",
	Short: "Raw tRPC access",
}

var trpcCallCmd = &cobra.Command{
	Use:   "call PROCEDURE [INPUT-JSON]",
	Short: "Call a tRPC procedure and print the raw envelope",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTRPCCall,
}

var trpcListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known tRPC routers and procedures",
	Args:  cobra.NoArgs,
	RunE:  runTRPCList,
}

var (
	trpcInput      string
	trpcInputFile  string
	trpcCookie     string
	trpcCookieFile string
)

func init() {
	trpcCallCmd.Flags().StringVar(&trpcInput, "input", "", "JSON procedure input")
	trpcCallCmd.Flags().StringVar(&trpcInputFile, "input-file", "", "file with JSON procedure input")
	trpcCallCmd.Flags().StringVar(&trpcCookie, "cookie", "", "Cookie header value")
	trpcCallCmd.Flags().StringVar(&trpcCookieFile, "cookie-file", "", "file with the Cookie header value")

	trpcCmd.AddCommand(trpcCallCmd)
	trpcCmd.AddCommand(trpcListCmd)
}

func runTRPCCall(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}

	var input any
	switch {
	case len(args) > 1 && (trpcInput != "" || trpcInputFile != ""):
		return cliutil.InvalidArgumentf("cannot combine a positional INPUT-JSON with --input/--input-file")
	case len(args) > 1:
		if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
			return cliutil.InvalidArgumentf("invalid input json: %v", err)
		}
	case trpcInput != "":
		if err := json.Unmarshal([]byte(trpcInput), &input); err != nil {
			return cliutil.InvalidArgumentf("invalid --input json: %v", err)
		}
	case trpcInputFile != "":
		data, err := os.ReadFile(trpcInputFile)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return cliutil.InvalidArgumentf("invalid --input-file json: %v", err)
		}
	}

	cookie := trpcCookie
	if cookie == "" && trpcCookieFile != "" {
		data, err := os.ReadFile(trpcCookieFile)
		if err != nil {
			return err
		}
		cookie = strings.TrimSpace(string(data))
	}
	if cookie == "" {
		cookie = client.NextAuthCookie(eff.SessionCookie, eff.DeviceCookie)
	}

	header := make(http.Header)
	if cookie != "" {
		header.Set("Cookie", cookie)
	}

	body := map[string]any{"0": map[string]any{"json": input}}
	path := "/api/trpc/" + strings.TrimSpace(args[0]) + "?batch=1"

	response, err := c.RequestJSON(cmd.Context(), http.MethodPost, path, body, header, false)
	if err != nil {
		return err
	}
	return printValue(eff, response)
}

// Procedure inventory of the ZTNet tRPC routers this CLI knows about. The
// server has no introspection endpoint, so the list is maintained by hand.
func runTRPCList(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	routers := map[string]any{
		"network":       []any{"getUserNetworks", "getNetworkById", "deleteNetwork", "ipv6", "enableIpv4AutoAssign", "managedRoutes", "easyIpAssignment"},
		"networkMember": []any{"getAll", "getMemberById", "create", "Update", "Tags", "UpdateDatabaseOnly", "stash", "delete", "getMemberAnotations", "removeMemberAnotations", "bulkDeleteStashed"},
		"auth":          []any{"register", "me", "update", "validateResetPasswordToken", "passwordResetLink", "changePasswordFromJwt", "sendVerificationEmail", "validateEmailVerificationToken", "updateUserOptions", "setZtApi", "setLocalZt", "getApiToken", "addApiToken", "deleteApiToken", "deleteUserDevice"},
		"mfaAuth":       []any{"mfaValidateToken", "mfaResetLink", "mfaResetValidation", "validateRecoveryToken"},
		"admin":         []any{"updateUser", "deleteUser", "createUser", "getUser", "getUsers", "generateInviteLink", "getInvitationLink", "deleteInvitationLink", "getControllerStats", "getAllOptions", "changeRole", "updateGlobalOptions", "getMailTemplates", "setMail", "setMailTemplates", "getDefaultMailTemplate", "sendTestMail", "unlinkedNetwork", "assignNetworkToUser", "addUserGroup", "getUserGroups", "deleteUserGroup", "assignUserGroup", "getIdentity", "getPlanet", "makeWorld", "resetWorld", "createBackup", "downloadBackup", "listBackups", "deleteBackup", "restoreBackup", "uploadBackup"},
		"settings":      []any{"getAllOptions", "getPublicOptions", "getAdminOptions"},
		"org":           []any{"createOrg", "deleteOrg", "updateMeta", "getOrgIdbyUserid", "getAllOrg", "getOrgUserRoleById", "getPlatformUsers", "getOrgUsers", "getOrgById", "createOrgNetwork", "changeUserRole", "addUser", "leave", "getLogs", "generateInviteLink", "resendInvite", "inviteUserByMail", "deleteInvite", "getInvites", "transferNetworkOwnership", "deleteOrgWebhooks", "addOrgWebhooks", "getOrgWebhooks", "updateOrganizationSettings", "getOrganizationSettings"},
		"public":        []any{"registrationAllowed", "getWelcomeMessage"},
	}

	return printRecord(eff, map[string]any{"routers": routers})
}
