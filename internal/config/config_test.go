package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Prompt.DebounceInputMs != 100 {
		t.Errorf("Expected debounce_input_ms=100, got %d", cfg.Prompt.DebounceInputMs)
	}
	if cfg.Prompt.TimeoutMs != 0 {
		t.Errorf("Expected timeout_ms=0, got %d", cfg.Prompt.TimeoutMs)
	}
	if !cfg.Prompt.Wrap {
		t.Error("Expected wrap=true")
	}
	if cfg.Prompt.FlagsMenuKey != "ctrl+k" {
		t.Errorf("Expected flags_menu_key=ctrl+k, got %s", cfg.Prompt.FlagsMenuKey)
	}
	if cfg.UI.Color != "auto" {
		t.Errorf("Expected color=auto, got %s", cfg.UI.Color)
	}
	if !cfg.History.Enabled {
		t.Error("Expected history.enabled=true")
	}
	if cfg.History.Limit != 5 {
		t.Errorf("Expected history.limit=5, got %d", cfg.History.Limit)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log.level=info, got %s", cfg.Log.Level)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestPromptDurations(t *testing.T) {
	p := PromptConfig{DebounceInputMs: 150, DebounceChoiceFocusMs: 20, TimeoutMs: 3000}

	if p.DebounceInput() != 150*time.Millisecond {
		t.Errorf("DebounceInput() = %v", p.DebounceInput())
	}
	if p.DebounceChoiceFocus() != 20*time.Millisecond {
		t.Errorf("DebounceChoiceFocus() = %v", p.DebounceChoiceFocus())
	}
	if p.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v", p.Timeout())
	}
}

func TestConfigGet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key      string
		expected string
	}{
		{"prompt.debounce_input_ms", "100"},
		{"prompt.debounce_choice_focus_ms", "0"},
		{"prompt.timeout_ms", "0"},
		{"prompt.wrap", "true"},
		{"prompt.match_description", "false"},
		{"prompt.strict", "false"},
		{"prompt.flags_menu_key", "ctrl+k"},
		{"ui.max_rows", "10"},
		{"ui.color", "auto"},
		{"ui.highlight", "212"},
		{"history.enabled", "true"},
		{"history.db_path", ""},
		{"history.limit", "5"},
		{"history.keep", "200"},
		{"log.level", "info"},
		{"log.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.expected {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"prompt.debounce_input_ms", "250"},
		{"prompt.debounce_choice_focus_ms", "30"},
		{"prompt.timeout_ms", "5000"},
		{"prompt.wrap", "false"},
		{"prompt.match_description", "true"},
		{"prompt.strict", "true"},
		{"prompt.flags_menu_key", "ctrl+o"},
		{"ui.max_rows", "20"},
		{"ui.color", "never"},
		{"ui.highlight", "#ff00ff"},
		{"history.enabled", "false"},
		{"history.db_path", "/tmp/h.db"},
		{"history.limit", "9"},
		{"history.keep", "50"},
		{"log.level", "debug"},
		{"log.file", "/tmp/palette.log"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) error: %v", tt.key, tt.value, err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.value {
				t.Errorf("after Set, Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestConfigGetInvalidKey(t *testing.T) {
	cfg := DefaultConfig()

	for _, key := range []string{"", "prompt", "prompt.wrap.extra", "unknown.field", "prompt.unknown", "ui.nope", "history.nope", "log.nope"} {
		if _, err := cfg.Get(key); err == nil {
			t.Errorf("Get(%q) should fail", key)
		}
	}
}

func TestConfigSetInvalidValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"prompt.debounce_input_ms", "abc"},
		{"prompt.debounce_input_ms", "-1"},
		{"prompt.timeout_ms", "-5"},
		{"prompt.wrap", "maybe"},
		{"prompt.flags_menu_key", "  "},
		{"ui.max_rows", "x"},
		{"ui.color", "sometimes"},
		{"history.enabled", "yes please"},
		{"history.limit", "-1"},
		{"history.keep", "0"},
		{"log.level", "verbose"},
		{"unknown.key", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
			}
		})
	}
}

func TestSetMaxRowsClamping(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Set("ui.max_rows", "1"); err != nil {
		t.Fatal(err)
	}
	if cfg.UI.MaxRows != 3 {
		t.Errorf("max_rows should clamp to 3, got %d", cfg.UI.MaxRows)
	}
	if err := cfg.Set("ui.max_rows", "500"); err != nil {
		t.Fatal(err)
	}
	if cfg.UI.MaxRows != 50 {
		t.Errorf("max_rows should clamp to 50, got %d", cfg.UI.MaxRows)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"negative debounce", func(c *Config) { c.Prompt.DebounceInputMs = -1 }, "debounce_input_ms"},
		{"negative focus debounce", func(c *Config) { c.Prompt.DebounceChoiceFocusMs = -1 }, "debounce_choice_focus_ms"},
		{"negative timeout", func(c *Config) { c.Prompt.TimeoutMs = -1 }, "timeout_ms"},
		{"empty menu key", func(c *Config) { c.Prompt.FlagsMenuKey = "" }, "flags_menu_key"},
		{"bad color", func(c *Config) { c.UI.Color = "rainbow" }, "ui.color"},
		{"negative limit", func(c *Config) { c.History.Limit = -2 }, "history.limit"},
		{"zero keep", func(c *Config) { c.History.Keep = 0 }, "history.keep"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateClampsMaxRows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.MaxRows = 0

	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.UI.MaxRows != 3 {
		t.Errorf("max_rows = %d, want 3", cfg.UI.MaxRows)
	}
}

func TestValidLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if !isValidLogLevel(level) {
			t.Errorf("%q should be valid", level)
		}
	}
	for _, level := range []string{"", "trace", "INFO"} {
		if isValidLogLevel(level) {
			t.Errorf("%q should be invalid", level)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PALETTE_DEBUG", "1")
	t.Setenv("PALETTE_HISTORY_DB", "/tmp/env.db")
	t.Setenv("PALETTE_NO_HISTORY", "true")
	t.Setenv("NO_COLOR", "1")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "debug" {
		t.Errorf("PALETTE_DEBUG should force debug, got %s", cfg.Log.Level)
	}
	if cfg.History.DBPath != "/tmp/env.db" {
		t.Errorf("PALETTE_HISTORY_DB not applied: %s", cfg.History.DBPath)
	}
	if cfg.History.Enabled {
		t.Error("PALETTE_NO_HISTORY should disable history")
	}
	if cfg.UI.Color != "never" {
		t.Errorf("NO_COLOR should force color=never, got %s", cfg.UI.Color)
	}
}

func TestApplyEnvOverrides_LogLevelWinsOverDebug(t *testing.T) {
	t.Setenv("PALETTE_DEBUG", "1")
	t.Setenv("PALETTE_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "warn" {
		t.Errorf("PALETTE_LOG_LEVEL should win, got %s", cfg.Log.Level)
	}
}

func TestApplyEnvOverrides_InvalidIgnored(t *testing.T) {
	t.Setenv("PALETTE_LOG_LEVEL", "loud")
	t.Setenv("PALETTE_DEBUG", "nah")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "info" {
		t.Errorf("invalid env values should be ignored, got %s", cfg.Log.Level)
	}
}

func TestLoadFromFile_NonExistent(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should yield defaults: %v", err)
	}
	if cfg.Prompt.DebounceInputMs != 100 {
		t.Errorf("expected defaults, got %+v", cfg.Prompt)
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("prompt: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromFile_PartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "prompt:\n  timeout_ms: 2500\n  strict: true\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prompt.TimeoutMs != 2500 {
		t.Errorf("timeout_ms = %d", cfg.Prompt.TimeoutMs)
	}
	if !cfg.Prompt.Strict {
		t.Error("strict should be true")
	}
	if cfg.Prompt.DebounceInputMs != 100 {
		t.Errorf("unset fields should keep defaults, got debounce_input_ms=%d", cfg.Prompt.DebounceInputMs)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %s", cfg.Log.Level)
	}
}

func TestLoadFromFile_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  color: plaid\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Prompt.TimeoutMs = 9000
	cfg.Prompt.FlagsMenuKey = "ctrl+o"
	cfg.History.Limit = 3
	cfg.UI.Highlight = "#00ff00"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, cfg)
	}
}

func TestListKeysAllGettable(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range ListKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("ListKeys includes %q but Get fails: %v", key, err)
		}
	}
}

func TestListKeysAllSettable(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range ListKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			t.Fatal(err)
		}
		if value == "" {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			t.Errorf("ListKeys includes %q but Set(current) fails: %v", key, err)
		}
	}
}
