package commands

import (
	"context"
	"net/http"
	"strings"

	"github.com/JKamsker/ztnet-cli/internal/client"
	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

// resolveOrgID accepts an organization id or a unique (case-insensitive)
// organization name. Unknown values pass through unchanged so the server
// reports them.
func resolveOrgID(ctx context.Context, c *client.Client, org string) (string, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return "", cliutil.InvalidArgumentf("org cannot be empty")
	}

	list, err := c.RequestJSON(ctx, http.MethodGet, "/api/v1/org", nil, nil, true)
	if err != nil {
		return "", err
	}
	orgs, ok := list.([]any)
	if !ok {
		return org, nil
	}

	for _, o := range orgs {
		if objString(o, "id") == org {
			return org, nil
		}
	}

	var matches []string
	for _, o := range orgs {
		id := objString(o, "id")
		name := objString(o, "orgName")
		if name == "" {
			name = objString(o, "name")
		}
		if id != "" && name != "" && strings.EqualFold(name, org) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return org, nil
	case 1:
		return matches[0], nil
	default:
		return "", cliutil.InvalidArgumentf("org name '%s' is ambiguous", org)
	}
}

// resolveNetworkID is resolveOrgID for networks, scoped to an organization
// when orgID is non-empty.
func resolveNetworkID(ctx context.Context, c *client.Client, orgID, network string) (string, error) {
	network = strings.TrimSpace(network)
	if network == "" {
		return "", cliutil.InvalidArgumentf("network cannot be empty")
	}

	listPath := "/api/v1/network"
	if orgID != "" {
		listPath = "/api/v1/org/" + orgID + "/network"
	}

	list, err := c.RequestJSON(ctx, http.MethodGet, listPath, nil, nil, true)
	if err != nil {
		return "", err
	}
	networks, ok := list.([]any)
	if !ok {
		return network, nil
	}

	for _, n := range networks {
		if networkID(n) == network {
			return network, nil
		}
	}

	var matches []string
	for _, n := range networks {
		id := networkID(n)
		name := objString(n, "name")
		if name == "" {
			name = objString(n, "nwname")
		}
		if id != "" && name != "" && strings.EqualFold(name, network) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return network, nil
	case 1:
		return matches[0], nil
	default:
		return "", cliutil.InvalidArgumentf("network name '%s' is ambiguous", network)
	}
}

// resolveOrgNetwork handles the common --org/--network pair: the org is
// resolved first (empty means no org scope), then the network within it.
func resolveOrgNetwork(ctx context.Context, c *client.Client, org, network string) (orgID, networkID string, err error) {
	if org != "" {
		orgID, err = resolveOrgID(ctx, c, org)
		if err != nil {
			return "", "", err
		}
	}
	networkID, err = resolveNetworkID(ctx, c, orgID, network)
	if err != nil {
		return "", "", err
	}
	return orgID, networkID, nil
}

// networkID reads the network identifier, which the REST API spells either
// "id" or "nwid" depending on the endpoint.
func networkID(value any) string {
	if id := objString(value, "id"); id != "" {
		return id
	}
	return objString(value, "nwid")
}

func objString(value any, key string) string {
	obj, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

func objBool(value any, key string) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}
	b, _ := obj[key].(bool)
	return b
}
