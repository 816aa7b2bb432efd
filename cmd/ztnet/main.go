package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/commands"
	"github.com/JKamsker/ztnet-cli/internal/version"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	version.GitCommit = GitCommit

	err := commands.Execute()
	if err != nil && !errors.Is(err, cliutil.ErrDryRunPrinted) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cliutil.ExitCode(err))
}
