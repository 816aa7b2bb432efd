package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"table": FormatTable,
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"yaml":  FormatYAML,
		"yml":   FormatYAML,
		" raw ": FormatRaw,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"name": "net-a"}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"net-a\"\n}", buf.String())

	buf.Reset()
	err = Write(&buf, map[string]any{"name": "net-a"}, FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"net-a"}`, buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"name": "net-a", "private": true}, FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "name: net-a")
	assert.Contains(t, buf.String(), "private: true")
}

func TestWriteTable(t *testing.T) {
	rows := []any{
		map[string]any{"id": "1", "name": "alpha", "authorized": true},
		map[string]any{"id": "2", "name": "beta", "authorized": false},
	}

	var buf bytes.Buffer
	err := Write(&buf, rows, FormatTable)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "id")
	assert.Contains(t, lines[0], "name")
	assert.Contains(t, lines[0], "authorized")
	assert.Contains(t, lines[1], "alpha")
	assert.Contains(t, lines[2], "beta")
}

func TestWriteTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"singleton": true}, FormatTable)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "non-arrays render as pretty JSON")

	buf.Reset()
	err = Write(&buf, []any{map[string]any{"unknown_col": 1}}, FormatTable)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "["), "rows without known columns render as JSON")
}

func TestScalar(t *testing.T) {
	assert.Equal(t, "", Scalar(nil))
	assert.Equal(t, "true", Scalar(true))
	assert.Equal(t, "text", Scalar("text"))
	assert.Equal(t, "42", Scalar(float64(42)))
	assert.Equal(t, "1.5", Scalar(1.5))
	assert.Equal(t, `["a"]`, Scalar([]any{"a"}))
}
