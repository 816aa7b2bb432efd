package commands

import (
	"net/http"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show controller statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}

	response, err := c.RequestJSON(cmd.Context(), http.MethodGet, "/api/v1/stats", nil, nil, true)
	if err != nil {
		return err
	}
	return printRecord(eff, response)
}
