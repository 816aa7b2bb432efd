package commands

import (
	"encoding/json"
	"os"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

// requestBodyValue parses the shared --body/--body-file flag pair. Returns
// nil when neither flag was given.
func requestBodyValue(body, bodyFile string) (any, error) {
	switch {
	case body != "":
		var value any
		if err := json.Unmarshal([]byte(body), &value); err != nil {
			return nil, cliutil.InvalidArgumentf("invalid --body json: %v", err)
		}
		return value, nil
	case bodyFile != "":
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, cliutil.InvalidArgumentf("invalid --body-file json: %v", err)
		}
		return value, nil
	default:
		return nil, nil
	}
}
