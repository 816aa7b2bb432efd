package cliutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// RedactToken keeps the first and last four characters of a secret for
// display. Short secrets are fully redacted.
func RedactToken(token string) string {
	const keep = 4
	runes := []rune(token)
	if len(runes) <= keep*2 {
		return "REDACTED"
	}
	return string(runes[:keep]) + "…" + string(runes[len(runes)-keep:])
}

// Confirm prompts on stderr and reads a y/N answer from stdin. Dry-run and
// --yes answer yes without prompting; --quiet refuses to prompt so scripted
// invocations fail fast instead of hanging.
func Confirm(prompt string, dryRun, yes, quiet bool) (bool, error) {
	if dryRun || yes {
		return true, nil
	}
	if quiet {
		return false, InvalidArgumentf("refusing to prompt in --quiet mode (pass --yes)")
	}

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// FirstNonEmpty returns the first non-empty value, for layering flag, env
// and profile sources in precedence order.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ReadStdinTrimmed reads all of stdin and trims surrounding whitespace, for
// --password-stdin style flags.
func ReadStdinTrimmed() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
