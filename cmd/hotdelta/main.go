package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"hotdelta/internal/errors"
)

// Exit codes. Rude edits are an outcome, not a failure of the tool.
const (
	exitOK    = 0
	exitRude  = 1
	exitError = 2
)

// errRudeEdits is returned by commands whose analysis found rude edits
// after the report was written.
var errRudeEdits = stderrors.New("rude edits found")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case stderrors.Is(err, errRudeEdits):
		return exitRude
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var he *errors.HotError
	if stderrors.As(err, &he) {
		for _, fix := range he.SuggestedFixes {
			if fix.Description != "" {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", fix.Description)
			}
		}
	}
	return exitError
}
