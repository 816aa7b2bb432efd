package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

// printDryRun renders a request to stdout instead of sending it: method and
// URL, headers with secrets redacted, and the body pretty-printed when it is
// JSON.
func printDryRun(method string, u *url.URL, token string, header http.Header, body []byte) {
	fmt.Printf("%s %s\n", strings.ToUpper(method), u.String())

	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range header[name] {
			if strings.EqualFold(name, "cookie") {
				value = cliutil.RedactToken(value)
			}
			fmt.Printf("%s: %s\n", strings.ToLower(name), value)
		}
	}

	if token != "" {
		fmt.Printf("%s: %s\n", authHeader, cliutil.RedactToken(token))
	}

	if len(body) == 0 {
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		fmt.Printf("\n%s\n", pretty.String())
		return
	}
	if utf8.Valid(body) {
		fmt.Printf("\n%s\n", string(body))
	}
}
