package client

import (
	"fmt"
	"os"
	"sync/atomic"
)

// UI carries the presentation settings a client needs for its diagnostics:
// quiet suppresses the auto-fix banner, NoColor strips ANSI codes, Profile
// names the profile the fix command should target.
type UI struct {
	Quiet   bool
	NoColor bool
	Profile string
}

func (ui UI) fixCommand(hostURL string) string {
	if ui.Profile != "" && ui.Profile != "default" {
		return fmt.Sprintf("ztnet --profile %s config set host %s", ui.Profile, hostURL)
	}
	return fmt.Sprintf("ztnet config set host %s", hostURL)
}

// maybeWarnAutofix prints the host auto-fix banner at most once per client
// instance. The warned flag is the one-shot guard; swap-once keeps it safe
// under concurrent calls.
func maybeWarnAutofix(ui UI, warned *atomic.Bool, bases []BaseCandidate, activeIdx int) {
	if ui.Quiet || activeIdx <= 0 || activeIdx >= len(bases) {
		return
	}
	if warned.Swap(true) {
		return
	}

	printAutofixBanner(ui, bases[0].Display, bases[activeIdx].Display)
}

func printAutofixBanner(ui UI, configured, using string) {
	fix := ui.fixCommand(using)

	if ui.NoColor {
		fmt.Fprintln(os.Stderr, "==================== HOST AUTO-FIX ====================")
		fmt.Fprintf(os.Stderr, "Configured: %s\n", configured)
		fmt.Fprintf(os.Stderr, "Using:      %s\n", using)
		fmt.Fprintf(os.Stderr, "Fix:        %s\n", fix)
		fmt.Fprintln(os.Stderr, "======================================================")
		return
	}

	const (
		highlight = "\x1b[33m\x1b[1m"
		reset     = "\x1b[0m"
	)
	fmt.Fprintf(os.Stderr, "%s==================== HOST AUTO-FIX ====================%s\n", highlight, reset)
	fmt.Fprintf(os.Stderr, "%sConfigured:%s %s\n", highlight, reset, configured)
	fmt.Fprintf(os.Stderr, "%sUsing:     %s %s\n", highlight, reset, using)
	fmt.Fprintf(os.Stderr, "%sFix:       %s %s\n", highlight, reset, fix)
	fmt.Fprintf(os.Stderr, "%s======================================================%s\n", highlight, reset)
}
