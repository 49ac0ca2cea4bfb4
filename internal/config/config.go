package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the palette configuration.
type Config struct {
	Prompt  PromptConfig  `yaml:"prompt"`
	UI      UIConfig      `yaml:"ui"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// PromptConfig holds defaults applied to every prompt session.
type PromptConfig struct {
	DebounceInputMs       int    `yaml:"debounce_input_ms"`        // Wait before re-pulling dynamic sources
	DebounceChoiceFocusMs int    `yaml:"debounce_choice_focus_ms"` // Wait before emitting focus/preview (0 = immediate)
	TimeoutMs             int    `yaml:"timeout_ms"`               // Auto-abort after this long (0 = never)
	Wrap                  bool   `yaml:"wrap"`                     // Wrap focus at list ends
	MatchDescription      bool   `yaml:"match_description"`        // Also filter on descriptions
	Strict                bool   `yaml:"strict"`                   // Only accept submits with a focused choice
	FlagsMenuKey          string `yaml:"flags_menu_key"`           // Key that opens the flags menu
}

// UIConfig holds terminal rendering settings.
type UIConfig struct {
	MaxRows   int    `yaml:"max_rows"`  // Visible choice rows
	Color     string `yaml:"color"`     // auto, always, never
	Highlight string `yaml:"highlight"` // Match highlight colour (ANSI number or hex)
}

// HistoryConfig holds recently-selected choice settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"` // Record and surface recent selections
	DBPath  string `yaml:"db_path"` // SQLite file (empty = default data dir)
	Limit   int    `yaml:"limit"`   // Recent entries shown per prompt key
	Keep    int    `yaml:"keep"`    // Rows kept per prompt key when pruning
}

// LogConfig holds diagnostics settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Prompt: PromptConfig{
			DebounceInputMs:       100,
			DebounceChoiceFocusMs: 0,
			TimeoutMs:             0,
			Wrap:                  true,
			MatchDescription:      false,
			Strict:                false,
			FlagsMenuKey:          "ctrl+k",
		},
		UI: UIConfig{
			MaxRows:   10,
			Color:     "auto",
			Highlight: "212",
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   5,
			Keep:    200,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DebounceInput returns the input debounce as a duration.
func (p PromptConfig) DebounceInput() time.Duration {
	return time.Duration(p.DebounceInputMs) * time.Millisecond
}

// DebounceChoiceFocus returns the focus debounce as a duration.
func (p PromptConfig) DebounceChoiceFocus() time.Duration {
	return time.Duration(p.DebounceChoiceFocusMs) * time.Millisecond
}

// Timeout returns the prompt timeout as a duration. Zero means none.
func (p PromptConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key,
// for example "prompt.timeout_ms" or "history.enabled".
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "prompt":
		return c.getPromptField(field)
	case "ui":
		return c.getUIField(field)
	case "history":
		return c.getHistoryField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "prompt":
		return c.setPromptField(field, value)
	case "ui":
		return c.setUIField(field, value)
	case "history":
		return c.setHistoryField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getPromptField(field string) (string, error) {
	switch field {
	case "debounce_input_ms":
		return strconv.Itoa(c.Prompt.DebounceInputMs), nil
	case "debounce_choice_focus_ms":
		return strconv.Itoa(c.Prompt.DebounceChoiceFocusMs), nil
	case "timeout_ms":
		return strconv.Itoa(c.Prompt.TimeoutMs), nil
	case "wrap":
		return strconv.FormatBool(c.Prompt.Wrap), nil
	case "match_description":
		return strconv.FormatBool(c.Prompt.MatchDescription), nil
	case "strict":
		return strconv.FormatBool(c.Prompt.Strict), nil
	case "flags_menu_key":
		return c.Prompt.FlagsMenuKey, nil
	default:
		return "", fmt.Errorf("unknown field: prompt.%s", field)
	}
}

func (c *Config) setPromptField(field, value string) error {
	switch field {
	case "debounce_input_ms":
		return setMillis(&c.Prompt.DebounceInputMs, field, value)
	case "debounce_choice_focus_ms":
		return setMillis(&c.Prompt.DebounceChoiceFocusMs, field, value)
	case "timeout_ms":
		return setMillis(&c.Prompt.TimeoutMs, field, value)
	case "wrap":
		return setBool(&c.Prompt.Wrap, field, value)
	case "match_description":
		return setBool(&c.Prompt.MatchDescription, field, value)
	case "strict":
		return setBool(&c.Prompt.Strict, field, value)
	case "flags_menu_key":
		if strings.TrimSpace(value) == "" {
			return errors.New("invalid flags_menu_key: must not be empty")
		}
		c.Prompt.FlagsMenuKey = value
	default:
		return fmt.Errorf("unknown field: prompt.%s", field)
	}
	return nil
}

func (c *Config) getUIField(field string) (string, error) {
	switch field {
	case "max_rows":
		return strconv.Itoa(c.UI.MaxRows), nil
	case "color":
		return c.UI.Color, nil
	case "highlight":
		return c.UI.Highlight, nil
	default:
		return "", fmt.Errorf("unknown field: ui.%s", field)
	}
}

func (c *Config) setUIField(field, value string) error {
	switch field {
	case "max_rows":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_rows: %w", err)
		}
		c.UI.MaxRows = clampRows(v)
	case "color":
		if !isValidColorMode(value) {
			return fmt.Errorf("invalid color: %s (must be auto, always, or never)", value)
		}
		c.UI.Color = value
	case "highlight":
		c.UI.Highlight = value
	default:
		return fmt.Errorf("unknown field: ui.%s", field)
	}
	return nil
}

func (c *Config) getHistoryField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.History.Enabled), nil
	case "db_path":
		return c.History.DBPath, nil
	case "limit":
		return strconv.Itoa(c.History.Limit), nil
	case "keep":
		return strconv.Itoa(c.History.Keep), nil
	default:
		return "", fmt.Errorf("unknown field: history.%s", field)
	}
}

func (c *Config) setHistoryField(field, value string) error {
	switch field {
	case "enabled":
		return setBool(&c.History.Enabled, field, value)
	case "db_path":
		c.History.DBPath = value
	case "limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for limit: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid limit: must be non-negative")
		}
		c.History.Limit = v
	case "keep":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for keep: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid keep: must be at least 1")
		}
		c.History.Keep = v
	default:
		return fmt.Errorf("unknown field: history.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func setMillis(dst *int, field, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", field, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid %s: must be non-negative", field)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, field, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", field, err)
	}
	*dst = v
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Prompt.DebounceInputMs < 0 {
		return errors.New("prompt.debounce_input_ms must be >= 0")
	}

	if c.Prompt.DebounceChoiceFocusMs < 0 {
		return errors.New("prompt.debounce_choice_focus_ms must be >= 0")
	}

	if c.Prompt.TimeoutMs < 0 {
		return errors.New("prompt.timeout_ms must be >= 0")
	}

	if strings.TrimSpace(c.Prompt.FlagsMenuKey) == "" {
		return errors.New("prompt.flags_menu_key must not be empty")
	}

	if !isValidColorMode(c.UI.Color) {
		return fmt.Errorf("ui.color must be auto, always, or never (got: %s)", c.UI.Color)
	}

	c.UI.MaxRows = clampRows(c.UI.MaxRows)

	if c.History.Limit < 0 {
		return errors.New("history.limit must be >= 0")
	}

	if c.History.Keep < 1 {
		return errors.New("history.keep must be >= 1")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	return nil
}

// clampRows bounds the visible list height to [3, 50].
func clampRows(n int) int {
	if n < 3 {
		return 3
	}
	if n > 50 {
		return 50
	}
	return n
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidColorMode(mode string) bool {
	switch mode {
	case "auto", "always", "never":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PALETTE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("PALETTE_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("PALETTE_HISTORY_DB"); v != "" {
		c.History.DBPath = v
	}
	if v := os.Getenv("PALETTE_NO_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.History.Enabled = false
		}
	}
	if os.Getenv("NO_COLOR") != "" {
		c.UI.Color = "never"
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"prompt.debounce_input_ms",
		"prompt.debounce_choice_focus_ms",
		"prompt.timeout_ms",
		"prompt.wrap",
		"prompt.match_description",
		"prompt.strict",
		"prompt.flags_menu_key",
		"ui.max_rows",
		"ui.color",
		"ui.highlight",
		"history.enabled",
		"history.db_path",
		"history.limit",
		"history.keep",
		"log.level",
		"log.file",
	}
}
