package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/history"
	"github.com/runger/palette/internal/model"
	"github.com/runger/palette/internal/prompt"
)

// isolate points every XDG directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("PALETTE_HISTORY_DB", "")
	t.Setenv("PALETTE_NO_HISTORY", "")
	t.Setenv("PALETTE_LOG_LEVEL", "")
	t.Setenv("PALETTE_DEBUG", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"cancelled", &exitError{code: exitCancelled}, exitCancelled},
		{"wrapped", errors.Join(errors.New("x"), &exitError{code: exitCancelled}), exitCancelled},
		{"plain error", errors.New("boom"), exitFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSilent(t *testing.T) {
	assert.True(t, Silent(&exitError{code: exitFallback}))
	assert.False(t, Silent(&exitError{code: exitFallback, err: errors.New("x")}))
	assert.False(t, Silent(errors.New("x")))
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}

func TestParseFlagSpecs(t *testing.T) {
	opts, err := parseFlagSpecs([]string{"open=ctrl+o:Open in editor", "copy:Copy", "raw"})
	require.NoError(t, err)

	assert.True(t, opts.Enabled)
	assert.Equal(t, []string{"open", "copy", "raw"}, opts.Order)
	assert.Equal(t, flags.Flag{Key: "open", Name: "Open in editor", Shortcut: "ctrl+o", Bar: flags.BarRight}, opts.Flags["open"])
	assert.Equal(t, flags.Flag{Key: "copy", Name: "Copy"}, opts.Flags["copy"])
	assert.Equal(t, "raw", opts.Flags["raw"].Label())
}

func TestParseFlagSpecs_Errors(t *testing.T) {
	_, err := parseFlagSpecs([]string{"=ctrl+o"})
	assert.Error(t, err)

	_, err = parseFlagSpecs([]string{"open", "open:Again"})
	assert.ErrorContains(t, err, "duplicate")

	opts, err := parseFlagSpecs(nil)
	require.NoError(t, err)
	assert.False(t, opts.Enabled)
}

func TestSanitizeQuery(t *testing.T) {
	got, err := sanitizeQuery("de\x07ploy\tx")
	require.NoError(t, err)
	assert.Equal(t, "deploy\tx", got)

	_, err = sanitizeQuery("a\nb")
	assert.Error(t, err)

	got, err = sanitizeQuery(strings.Repeat("a", maxInputLen+10))
	require.NoError(t, err)
	assert.Len(t, got, maxInputLen)
}

func TestSanitizeQuery_TruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes, so an odd limit lands inside a rune.
	got, err := sanitizeQuery("x" + strings.Repeat("é", maxInputLen))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxInputLen)
	assert.Equal(t, maxInputLen-1, len(got))
}

func TestLoadChoices_Args(t *testing.T) {
	p, err := loadChoices(strings.NewReader(""), []string{"a", "b"}, &pickOpts{})
	require.NoError(t, err)
	assert.False(t, p.Dynamic())

	_, err = loadChoices(strings.NewReader(""), []string{"a"}, &pickOpts{jsonInput: true})
	assert.Error(t, err)
}

func TestLoadChoices_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "choices.json")
	require.NoError(t, os.WriteFile(path, []byte(`["x", {"name": "Y", "value": "y"}]`), 0o600))

	p, err := loadChoices(strings.NewReader("ignored"), nil, &pickOpts{file: path, jsonInput: true})
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = loadChoices(strings.NewReader(""), nil, &pickOpts{file: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestLoadChoices_Stdin(t *testing.T) {
	p, err := loadChoices(strings.NewReader("one\ntwo\n"), nil, &pickOpts{})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestWriteResult(t *testing.T) {
	choice := model.Choice{Name: "Alpha", Value: "a"}
	res := prompt.Result{Value: "a", Flag: "open", Input: "al", Choice: &choice}

	tests := []struct {
		name string
		opts pickOpts
		want string
	}{
		{"plain", pickOpts{output: "plain"}, "a\n"},
		{"with flag", pickOpts{output: "plain", printFlag: true}, "open\na\n"},
		{"json", pickOpts{output: "json"}, `{"value":"a","name":"Alpha","flag":"open","input":"al"}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeResult(&buf, res, &tt.opts))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "", valueString(nil))
	assert.Equal(t, "x", valueString("x"))
	assert.Equal(t, "42", valueString(42))
	assert.Equal(t, `{"a":1}`, valueString(map[string]int{"a": 1}))
}

func TestValidatePickOpts(t *testing.T) {
	assert.Error(t, validatePickOpts(&pickOpts{output: "yaml"}))
	assert.Error(t, validatePickOpts(&pickOpts{output: "plain", timeout: -1}))
	assert.NoError(t, validatePickOpts(&pickOpts{output: "json"}))
}

func TestPick_InvalidOutputFallsBack(t *testing.T) {
	isolate(t)

	out, err := execute(t, "pick", "--output", "xml", "a")
	assert.Equal(t, exitFallback, ExitCode(err))
	assert.True(t, Silent(err))
	assert.Contains(t, out, "--output")
}

func TestConfigCmd_SetGetList(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "config", "ui.max_rows", "15")
	require.NoError(t, err)
	assert.Contains(t, out, "ui.max_rows")
	assert.FileExists(t, filepath.Join(dir, "config", "palette", "config.yaml"))

	out, err = execute(t, "config", "ui.max_rows")
	require.NoError(t, err)
	assert.Equal(t, "15\n", out)

	out, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "prompt.debounce_input_ms")
	assert.Contains(t, out, "Config file:")
}

func TestConfigCmd_InvalidKey(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "nope.key")
	assert.Error(t, err)

	_, err = execute(t, "config", "ui.color", "sometimes")
	assert.Error(t, err)
}

func TestHistoryCmd(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "data", "palette", "history.db")

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	for _, v := range []string{"staging", "production", "staging"} {
		_, err := store.Record(t.Context(), history.Entry{Key: "deploy", Value: v})
		require.NoError(t, err)
	}
	_, err = store.Record(t.Context(), history.Entry{Key: "branch", Value: "main"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "deploy")
	assert.Contains(t, out, "branch")

	out, err = execute(t, "history", "deploy", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "staging")
	assert.NotContains(t, out, "production")

	out, err = execute(t, "history", "--prune", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries")

	out, err = execute(t, "history", "deploy", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entry")

	out, err = execute(t, "history", "deploy")
	require.NoError(t, err)
	assert.Contains(t, out, "No history")
}

func TestHistoryCmd_FlagConflicts(t *testing.T) {
	isolate(t)

	_, err := execute(t, "history", "--clear", "--prune", "3")
	assert.Error(t, err)

	_, err = execute(t, "history", "-n", "0")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "palette "+Version)
}
