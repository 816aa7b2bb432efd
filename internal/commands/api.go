package commands

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Raw REST API access",
}

var apiGetCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "GET a REST API path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPIRequest(cmd, http.MethodGet, args[0])
	},
}

var apiPostCmd = &cobra.Command{
	Use:   "post PATH",
	Short: "POST to a REST API path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPIRequest(cmd, http.MethodPost, args[0])
	},
}

var apiDeleteCmd = &cobra.Command{
	Use:   "delete PATH",
	Short: "DELETE a REST API path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPIRequest(cmd, http.MethodDelete, args[0])
	},
}

var apiRequestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send an arbitrary REST API request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := parseHTTPMethod(args[0])
		if err != nil {
			return err
		}
		return runAPIRequest(cmd, method, args[1])
	},
}

var (
	apiBody     string
	apiBodyFile string
	apiHeaders  []string
	apiNoAuth   bool
	apiRaw      bool
)

func init() {
	for _, c := range []*cobra.Command{apiGetCmd, apiPostCmd, apiDeleteCmd, apiRequestCmd} {
		c.Flags().StringVar(&apiBody, "body", "", "JSON request body")
		c.Flags().StringVar(&apiBodyFile, "body-file", "", "file with JSON request body")
	}
	apiRequestCmd.Flags().StringArrayVar(&apiHeaders, "header", nil, "extra header K:V (repeatable)")
	apiRequestCmd.Flags().BoolVar(&apiNoAuth, "no-auth", false, "send the request without authentication")
	apiRequestCmd.Flags().BoolVar(&apiRaw, "raw", false, "write the raw response body to stdout")

	apiCmd.AddCommand(apiGetCmd)
	apiCmd.AddCommand(apiPostCmd)
	apiCmd.AddCommand(apiDeleteCmd)
	apiCmd.AddCommand(apiRequestCmd)
}

func runAPIRequest(cmd *cobra.Command, method, path string) error {
	_, _, eff, err := resolveEffective()
	if err != nil {
		return err
	}
	c, err := newClient(eff)
	if err != nil {
		return err
	}

	header := make(http.Header)
	for _, raw := range apiHeaders {
		k, v, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return cliutil.InvalidArgumentf("invalid header (expected K:V): %s", raw)
		}
		header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	includeAuth := !apiNoAuth && strings.HasPrefix(strings.TrimSpace(path), "/api/v1")

	body, err := requestBodyValue(apiBody, apiBodyFile)
	if err != nil {
		return err
	}

	if apiRaw {
		var bodyBytes []byte
		contentType := ""
		if body != nil {
			bodyBytes, err = json.Marshal(body)
			if err != nil {
				return err
			}
			contentType = "application/json"
		}

		data, err := c.RequestBytes(cmd.Context(), method, path, bodyBytes, header, includeAuth, contentType)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	response, err := c.RequestJSON(cmd.Context(), method, path, body, header, includeAuth)
	if err != nil {
		return err
	}
	return printValue(eff, response)
}

func parseHTTPMethod(raw string) (string, error) {
	method := strings.ToUpper(strings.TrimSpace(raw))
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method, nil
	default:
		return "", cliutil.InvalidArgumentf("invalid http method: %s", raw)
	}
}
