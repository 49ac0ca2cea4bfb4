// Package main is the entry point for the palette CLI.
package main

import (
	"fmt"
	"os"

	"github.com/runger/palette/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !cmd.Silent(err) {
			fmt.Fprintf(os.Stderr, "palette: %v\n", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
