// Package cmd implements the palette command line.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	groupCore  = "core"
	groupSetup = "setup"
)

// Exit codes.
// These match the expectations of shell scripts:
//
//	0 = selection made (use the result)
//	1 = cancelled or timed out (keep original input)
//	2 = fallback (no TTY, bad arguments, internal error)
const (
	exitSuccess   = 0
	exitCancelled = 1
	exitFallback  = 2
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFallback
}

// Silent reports whether err was already reported to the user.
func Silent(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.err == nil
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "palette",
		Short: "interactive choice prompt for scripts and shells",
		Long: `palette - an interactive command palette for any script
  - pipe choices in, get the selection out
  - fuzzy filtering, groups, flags and shortcuts
  - remembers recent selections per prompt`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)
	root.AddCommand(newPickCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
