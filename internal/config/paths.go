// Package config provides configuration management for palette.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "palette"

// Paths holds the on-disk locations palette uses.
type Paths struct {
	ConfigDir string // config.yaml
	DataDir   string // selection history and logs
	CacheDir  string // prompt lock
}

// DefaultPaths resolves palette's directories from the XDG base
// directory variables, or from %APPDATA% and %LOCALAPPDATA% on Windows.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		roaming := envDir("APPDATA", home, "AppData", "Roaming")
		local := envDir("LOCALAPPDATA", home, "AppData", "Local")
		return &Paths{
			ConfigDir: filepath.Join(roaming, appName),
			DataDir:   filepath.Join(local, appName),
			CacheDir:  filepath.Join(local, appName, "cache"),
		}
	}

	return &Paths{
		ConfigDir: filepath.Join(envDir("XDG_CONFIG_HOME", home, ".config"), appName),
		DataDir:   filepath.Join(envDir("XDG_DATA_HOME", home, ".local", "share"), appName),
		CacheDir:  filepath.Join(envDir("XDG_CACHE_HOME", home, ".cache"), appName),
	}
}

// envDir returns the directory named by key, or home joined with def
// when the variable is unset.
func envDir(key, home string, def ...string) string {
	if dir := os.Getenv(key); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{home}, def...)...)
}

// ConfigFile is the YAML file read by Load and written by Save.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// HistoryFile is the SQLite database of past selections.
func (p *Paths) HistoryFile() string {
	return filepath.Join(p.DataDir, "history.db")
}

func (p *Paths) LogDir() string {
	return filepath.Join(p.DataDir, "logs")
}

func (p *Paths) LogFile() string {
	return filepath.Join(p.LogDir(), appName+".log")
}

// LockFile serializes interactive prompts drawing on one terminal.
func (p *Paths) LockFile() string {
	return filepath.Join(p.CacheDir, "prompt.lock")
}

// EnsureDirectories creates every directory palette writes into.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConfigDir, p.DataDir, p.CacheDir, p.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}
