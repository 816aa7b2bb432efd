// Package output renders decoded API responses in the formats the CLI
// supports: table, json, yaml and raw. The core only ever hands this package
// an already-decoded JSON-like value.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

// Format selects how a response value is rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatRaw   Format = "raw"
)

// ParseFormat accepts the user-facing spellings of a format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "raw":
		return FormatRaw, nil
	default:
		return "", cliutil.InvalidArgumentf("invalid output format: %s", value)
	}
}

func (f Format) String() string {
	return string(f)
}

// Print renders value to stdout followed by a newline.
func Print(value any, format Format) error {
	if err := Write(os.Stdout, value, format); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

// Write renders value to w in the requested format. Table rendering only
// applies to arrays of objects with known columns; anything else falls back
// to pretty JSON.
func Write(w io.Writer, value any, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, value, true)
	case FormatYAML:
		data, err := yaml.Marshal(value)
		if err != nil {
			return cliutil.InvalidArgumentf("yaml serialize error: %v", err)
		}
		_, err = w.Write(data)
		return err
	case FormatRaw:
		return writeJSON(w, value, false)
	default:
		ok, err := writeTable(w, value)
		if err != nil {
			return err
		}
		if !ok {
			return writeJSON(w, value, true)
		}
		return nil
	}
}

// PrintKV renders an object as sorted key: value lines, used by commands
// whose table form is a single record rather than a list.
func PrintKV(value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		fmt.Println(Scalar(value))
		return
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %s\n", k, Scalar(obj[k]))
	}
}

// Scalar renders a single JSON value as a bare cell string.
func Scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		return fmt.Sprintf("%t", v)
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integers without the
		// trailing .0 noise.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func writeJSON(w io.Writer, value any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// preferredColumns is the ordered set of columns table output knows about;
// only columns present in at least one row are shown.
var preferredColumns = []string{
	"id",
	"name",
	"orgName",
	"nwid",
	"nwname",
	"authorized",
	"memberCount",
	"host",
	"default_profile",
	"profiles",
}

func writeTable(w io.Writer, value any) (bool, error) {
	rows, ok := value.([]any)
	if !ok {
		return false, nil
	}

	var columns []string
	for _, col := range preferredColumns {
		for _, row := range rows {
			if obj, ok := row.(map[string]any); ok {
				if _, present := obj[col]; present {
					columns = append(columns, col)
					break
				}
			}
		}
	}
	if len(columns) == 0 {
		return false, nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))

	for _, row := range rows {
		obj, _ := row.(map[string]any)
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, Scalar(obj[col]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return true, tw.Flush()
}
