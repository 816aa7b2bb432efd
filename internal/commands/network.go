package commands

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/output"
)

var networkCmd = &cobra.Command{
	Use:     "network",
	Aliases: []string{"net"},
	Short:   "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List networks",
	Args:  cobra.NoArgs,
	RunE:  runNetworkList,
}

var networkGetCmd = &cobra.Command{
	Use:   "get NETWORK",
	Short: "Show one network",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworkGet,
}

var networkCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a network",
	Args:  cobra.NoArgs,
	RunE:  runNetworkCreate,
}

var networkSetCmd = &cobra.Command{
	Use:   "set NETWORK",
	Short: "Update a network (org-scoped)",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworkSet,
}

var networkDeleteCmd = &cobra.Command{
	Use:   "delete NETWORK",
	Short: "Delete a network",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworkDelete,
}

var (
	networkFilter      string
	networkDetails     bool
	networkIDsOnly     bool
	networkCreateName  string
	networkSetName     string
	networkSetDesc     string
	networkSetMTU      string
	networkSetPrivate  bool
	networkSetPublic   bool
	networkSetFlowRule string
	networkSetFlowFile string
	networkSetDNSDom   string
	networkSetDNSSrv   []string
	networkSetBody     string
	networkSetBodyFile string
)

func init() {
	networkListCmd.Flags().StringVar(&networkFilter, "filter", "", "filter expression (name~=SUBSTR, private==BOOL)")
	networkListCmd.Flags().BoolVar(&networkDetails, "details", false, "fetch full detail for each network")
	networkListCmd.Flags().BoolVar(&networkIDsOnly, "ids-only", false, "print network ids only")

	networkCreateCmd.Flags().StringVar(&networkCreateName, "name", "", "network name")

	networkSetCmd.Flags().StringVar(&networkSetName, "name", "", "network name")
	networkSetCmd.Flags().StringVar(&networkSetDesc, "description", "", "network description")
	networkSetCmd.Flags().StringVar(&networkSetMTU, "mtu", "", "network MTU")
	networkSetCmd.Flags().BoolVar(&networkSetPrivate, "private", false, "make the network private")
	networkSetCmd.Flags().BoolVar(&networkSetPublic, "public", false, "make the network public")
	networkSetCmd.Flags().StringVar(&networkSetFlowRule, "flow-rule", "", "flow rules source")
	networkSetCmd.Flags().StringVar(&networkSetFlowFile, "flow-rule-file", "", "file with flow rules source")
	networkSetCmd.Flags().StringVar(&networkSetDNSDom, "dns-domain", "", "DNS search domain")
	networkSetCmd.Flags().StringArrayVar(&networkSetDNSSrv, "dns-server", nil, "DNS server (repeatable)")
	networkSetCmd.Flags().StringVar(&networkSetBody, "body", "", "raw JSON update body")
	networkSetCmd.Flags().StringVar(&networkSetBodyFile, "body-file", "", "file with raw JSON update body")

	networkCmd.AddCommand(networkListCmd)
	networkCmd.AddCommand(networkGetCmd)
	networkCmd.AddCommand(networkCreateCmd)
	networkCmd.AddCommand(networkSetCmd)
	networkCmd.AddCommand(networkDeleteCmd)
}

func networkPath(orgID, networkID string) string {
	if orgID != "" {
		return "/api/v1/org/" + orgID + "/network/" + networkID
	}
	return "/api/v1/network/" + networkID
}

func networkListPath(orgID string) string {
	if orgID != "" {
		return "/api/v1/org/" + orgID + "/network"
	}
	return "/api/v1/network"
}

func runNetworkList(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID := ""
	if eff.Org != "" {
		orgID, err = resolveOrgID(ctx, c, eff.Org)
		if err != nil {
			return err
		}
	}

	response, err := c.RequestJSON(ctx, http.MethodGet, networkListPath(orgID), nil, nil, true)
	if err != nil {
		return err
	}

	if networkFilter != "" {
		response = filterNetworkList(response, networkFilter)
	}

	if networkDetails {
		networks, ok := response.([]any)
		if !ok {
			return cliutil.InvalidArgumentf("expected array response")
		}
		detailed := make([]any, 0, len(networks))
		for _, net := range networks {
			id := networkID(net)
			if id == "" {
				continue
			}
			detail, err := c.RequestJSON(ctx, http.MethodGet, networkPath(orgID, id), nil, nil, true)
			if err != nil {
				return err
			}
			detailed = append(detailed, detail)
		}
		response = detailed
	}

	if networkIDsOnly {
		var ids []any
		if networks, ok := response.([]any); ok {
			for _, net := range networks {
				if id := networkID(net); id != "" {
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

func runNetworkGet(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID, netID, err := resolveOrgNetwork(ctx, c, eff.Org, args[0])
	if err != nil {
		return err
	}

	response, err := c.RequestJSON(ctx, http.MethodGet, networkPath(orgID, netID), nil, nil, true)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runNetworkCreate(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID := ""
	if eff.Org != "" {
		orgID, err = resolveOrgID(ctx, c, eff.Org)
		if err != nil {
			return err
		}
	}

	body := map[string]any{}
	if networkCreateName != "" {
		body["name"] = networkCreateName
	}

	response, err := c.RequestJSON(ctx, http.MethodPost, networkListPath(orgID), body, nil, true)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runNetworkSet(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	if eff.Org == "" {
		return cliutil.InvalidArgumentf("network set requires --org (only org networks are updatable over the REST API)")
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID, netID, err := resolveOrgNetwork(ctx, c, eff.Org, args[0])
	if err != nil {
		return err
	}

	body, err := requestBodyValue(networkSetBody, networkSetBodyFile)
	if err != nil {
		return err
	}
	if body == nil {
		body, err = buildNetworkUpdateBody()
		if err != nil {
			return err
		}
	}

	response, err := c.RequestJSON(ctx, http.MethodPost, networkPath(orgID, netID), body, nil, true)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

func runNetworkDelete(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	orgID, netID, err := resolveOrgNetwork(ctx, c, eff.Org, args[0])
	if err != nil {
		return err
	}

	ok, err := confirm(fmt.Sprintf("Delete network '%s'?", netID))
	if err != nil || !ok {
		return err
	}

	response, err := c.RequestJSON(ctx, http.MethodDelete, networkPath(orgID, netID), nil, nil, true)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}

// filterNetworkList applies the comma-separated filter expression. Supported
// terms: name~=SUBSTR (case-insensitive contains) and private==BOOL.
func filterNetworkList(response any, expr string) any {
	items, ok := response.([]any)
	if !ok {
		return response
	}

	var nameContains string
	var privateIs *bool

	for _, raw := range strings.Split(expr, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if k, v, ok := strings.Cut(raw, "~="); ok {
			if strings.EqualFold(strings.TrimSpace(k), "name") {
				nameContains = strings.TrimSpace(v)
			}
			continue
		}
		if k, v, ok := strings.Cut(raw, "=="); ok {
			if strings.EqualFold(strings.TrimSpace(k), "private") {
				b := false
				switch strings.ToLower(strings.TrimSpace(v)) {
				case "true", "1", "yes":
					b = true
				}
				privateIs = &b
			}
		}
	}

	filtered := make([]any, 0, len(items))
	for _, item := range items {
		if nameContains != "" {
			name := objString(item, "name")
			if name == "" {
				name = objString(item, "nwname")
			}
			if !strings.Contains(strings.ToLower(name), strings.ToLower(nameContains)) {
				continue
			}
		}
		if privateIs != nil && objBool(item, "private") != *privateIs {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func buildNetworkUpdateBody() (map[string]any, error) {
	body := map[string]any{}

	if networkSetName != "" {
		body["name"] = networkSetName
	}
	if networkSetDesc != "" {
		body["description"] = networkSetDesc
	}
	if networkSetMTU != "" {
		body["mtu"] = networkSetMTU
	}
	if networkSetPrivate {
		body["private"] = true
	} else if networkSetPublic {
		body["private"] = false
	}

	if networkSetFlowRule != "" || networkSetFlowFile != "" {
		rule := networkSetFlowRule
		if rule == "" {
			data, err := os.ReadFile(networkSetFlowFile)
			if err != nil {
				return nil, err
			}
			rule = string(data)
		}
		body["flowRule"] = rule
	}

	if networkSetDNSDom != "" || len(networkSetDNSSrv) > 0 {
		if networkSetDNSDom == "" {
			return nil, cliutil.InvalidArgumentf("dns settings require --dns-domain")
		}
		body["dns"] = map[string]any{
			"domain":  networkSetDNSDom,
			"servers": networkSetDNSSrv,
		}
	}

	if len(body) == 0 {
		return nil, cliutil.InvalidArgumentf("no update fields provided (use flags or --body/--body-file)")
	}
	return body, nil
}
