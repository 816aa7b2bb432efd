package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/client"
	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage organizations",
}

var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List organizations",
	Args:  cobra.NoArgs,
	RunE:  runOrgList,
}

var orgGetCmd = &cobra.Command{
	Use:   "get ORG",
	Short: "Show one organization",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgGet,
}

var orgNetworksCmd = &cobra.Command{
	Use:   "networks ORG",
	Short: "List the networks of an organization",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgNetworks,
}

var orgUsersCmd = &cobra.Command{
	Use:   "users ORG",
	Short: "List the users of an organization (session auth)",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgUsers,
}

var (
	orgListDetails bool
	orgListIDsOnly bool
)

func init() {
	orgListCmd.Flags().BoolVar(&orgListDetails, "details", false, "fetch full detail for each organization")
	orgListCmd.Flags().BoolVar(&orgListIDsOnly, "ids-only", false, "print organization ids only")

	orgCmd.AddCommand(orgListCmd)
	orgCmd.AddCommand(orgGetCmd)
	orgCmd.AddCommand(orgNetworksCmd)
	orgCmd.AddCommand(orgUsersCmd)
}

func runOrgList(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	response, err := c.RequestJSON(ctx, http.MethodGet, "/api/v1/org", nil, nil, true)
	if err != nil {
		return err
	}

	if orgListDetails {
		orgs, ok := response.([]any)
		if !ok {
			return cliutil.InvalidArgumentf("expected array response")
		}
		detailed := make([]any, 0, len(orgs))
		for _, org := range orgs {
			id := objString(org, "id")
			if id == "" {
				continue
			}
			detail, err := c.RequestJSON(ctx, http.MethodGet, "/api/v1/org/"+id, nil, nil, true)
			if err != nil {
				return err
			}
			detailed = append(detailed, detail)
		}
		response = detailed
	}

	if orgListIDsOnly {
		var ids []any
		if orgs, ok := response.([]any); ok {
			for _, org := range orgs {
				if id := objString(org, "id"); id != "" {
					ids = append(ids, id)
				}
			}
		}

		if eff.Output == output.FormatTable {
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		}
		return printValue(eff, ids)
	}

	return printValue(eff, response)
}

func runOrgGet(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID, err := resolveOrgID(ctx, c, args[0])
	if err != nil {
		return err
	}

	response, err := c.RequestJSON(ctx, http.MethodGet, "/api/v1/org/"+orgID, nil, nil, true)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runOrgNetworks(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID, err := resolveOrgID(ctx, c, args[0])
	if err != nil {
		return err
	}

	response, err := c.RequestJSON(ctx, http.MethodGet, "/api/v1/org/"+orgID+"/network", nil, nil, true)
	if err != nil {
		return err
	}
	return printValue(eff, response)
}

func runOrgUsers(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	trpc, err := newAuthedTRPC(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID, err := resolveOrgIDTRPC(ctx, trpc, args[0])
	if err != nil {
		return err
	}

	response, err := trpc.Call(ctx, "org.getOrgUsers", map[string]any{"organizationId": orgID})
	if err != nil {
		return err
	}
	return printValue(eff, response)
}

// resolveOrgIDTRPC resolves an org id or unique orgName through the tRPC
// surface, for commands that run with session auth instead of an API token.
func resolveOrgIDTRPC(ctx context.Context, trpc *client.TRPCClient, org string) (string, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return "", cliutil.InvalidArgumentf("org cannot be empty")
	}

	value, err := trpc.Call(ctx, "org.getOrgIdbyUserid", nil)
	if err != nil {
		return "", err
	}
	items, ok := value.([]any)
	if !ok {
		return org, nil
	}

	for _, item := range items {
		if objString(item, "id") == org {
			return org, nil
		}
	}

	var matches []string
	for _, item := range items {
		id := objString(item, "id")
		name := objString(item, "orgName")
		if id != "" && name != "" && strings.EqualFold(name, org) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", cliutil.InvalidArgumentf("org '%s' not found (pass org id or exact orgName)", org)
	case 1:
		return matches[0], nil
	default:
		return "", cliutil.InvalidArgumentf("org name '%s' is ambiguous", org)
	}
}
