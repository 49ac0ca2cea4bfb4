//go:build windows

package cmd

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// openTTY opens the console for the prompt.
func openTTY() (*os.File, error) {
	f, err := os.OpenFile("CONIN$", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("no console available: %w", err)
	}
	return f, nil
}

// checkTERM accepts every Windows console.
func checkTERM() error {
	return nil
}

// termWidth returns the console width in columns, or 0 if unknown.
func termWidth(f *os.File) int {
	out, err := windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
	if err != nil {
		return 0
	}
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(out, &info); err != nil {
		return 0
	}
	return int(info.Window.Right-info.Window.Left) + 1
}

// acquireLock is a no-op; Windows consoles are not shared between prompts.
func acquireLock(path string) (func(), error) {
	return func() {}, nil
}
