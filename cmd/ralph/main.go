package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"

	ralpherrors "github.com/scoutline/ralph/internal/errors"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !goerrors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a top-level command error to a process exit code.
// An error with an ExitCode() method (a run's terminal outcome) uses
// that code; an unwrapped ralpherrors value gets the Kind-based mapping
// of ralpherrors.ExitCode; every other error, including config load and
// flag parsing failures, exits with 1.
func exitCodeFor(err error) int {
	if goerrors.Is(err, context.Canceled) {
		return 0
	}
	var withCode interface{ ExitCode() int }
	if goerrors.As(err, &withCode) {
		return withCode.ExitCode()
	}
	return ralpherrors.ExitCode(err)
}
