package cmd

import (
	"os"

	"github.com/muesli/termenv"
)

// ANSI color codes for terminal output.
// These are cleared in init() when colors are disabled.
var (
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan   = "\033[0;36m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

func init() {
	if shouldDisableColors() {
		colorRed = ""
		colorGreen = ""
		colorYellow = ""
		colorCyan = ""
		colorDim = ""
		colorBold = ""
		colorReset = ""
	}
}

func shouldDisableColors() bool {
	// NO_COLOR (https://no-color.org/) and TERM=dumb
	if termenv.EnvNoColor() || os.Getenv("TERM") == "dumb" {
		return true
	}
	return termenv.NewOutput(os.Stdout).EnvColorProfile() == termenv.Ascii
}
