package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export network data",
}

var exportNetworkCmd = &cobra.Command{
	Use:   "network NETWORK",
	Short: "Export a network and its members as one JSON document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportNetwork,
}

var exportNetworkOut string

func init() {
	exportNetworkCmd.Flags().StringVar(&exportNetworkOut, "out", "", "write to a file instead of stdout")

	exportCmd.AddCommand(exportNetworkCmd)
}

func runExportNetwork(cmd *cobra.Command, args []string) error {
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

	network, err := c.RequestJSON(ctx, http.MethodGet, networkPath(orgID, netID), nil, nil, true)
	if err != nil {
		return err
	}
	members, err := c.RequestJSON(ctx, http.MethodGet, memberListPath(orgID, netID), nil, nil, true)
	if err != nil {
		return err
	}

	document := map[string]any{
		"network": network,
		"members": members,
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if exportNetworkOut != "" {
		if dir := filepath.Dir(exportNetworkOut); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(exportNetworkOut, data, 0o644); err != nil {
			return err
		}
		if !globalOpts.Quiet {
			fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s.\n", len(data), exportNetworkOut)
		}
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}
