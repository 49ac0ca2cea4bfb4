package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/palette/internal/config"
	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/history"
	"github.com/runger/palette/internal/logging"
	"github.com/runger/palette/internal/model"
	"github.com/runger/palette/internal/prompt"
	"github.com/runger/palette/internal/source"
	"github.com/runger/palette/internal/tui"
)

// maxInputLen is the maximum length of the initial input in bytes.
const maxInputLen = 4096

// minTermWidth is the narrowest terminal the prompt draws in.
const minTermWidth = 20

// pickOpts holds the parsed command-line options for pick.
type pickOpts struct {
	file             string
	jsonInput        bool
	output           string
	message          string
	placeholder      string
	hint             string
	input            string
	timeout          time.Duration
	strict           bool
	matchDescription bool
	flagSpecs        []string
	printFlag        bool
	historyKey       string
	noHistory        bool
}

func newPickCmd() *cobra.Command {
	opts := &pickOpts{}
	cmd := &cobra.Command{
		Use:     "pick [choice...]",
		Short:   "Prompt for one choice and print it",
		GroupID: groupCore,
		Long: `Show an interactive prompt and print the selected value.

Choices come from the arguments, from --file, or from stdin, one per
line. With --json the input is a JSON array of strings or choice objects
(name, value, description, group, tag, icon, preview, choices, ...).

The prompt draws on /dev/tty, so it works inside $(...).

Exit codes:
  0  a choice was selected
  1  cancelled or timed out
  2  no terminal or invalid input

Examples:
  git branch --format='%(refname:short)' | palette pick --prompt Branch
  palette pick --history-key deploy staging production
  palette pick --json --flag open=ctrl+o:Open --print-flag < actions.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPick(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "read choices from this file instead of stdin")
	f.BoolVar(&opts.jsonInput, "json", false, "parse choices as a JSON array")
	f.StringVarP(&opts.output, "output", "o", "plain", "output format: plain or json")
	f.StringVarP(&opts.message, "prompt", "p", "", "message shown before the input")
	f.StringVar(&opts.placeholder, "placeholder", "", "placeholder for the empty input")
	f.StringVar(&opts.hint, "hint", "", "hint line under the input")
	f.StringVarP(&opts.input, "query", "q", "", "initial input (max 4096 bytes)")
	f.DurationVar(&opts.timeout, "timeout", 0, "abort after this long (default from config)")
	f.BoolVar(&opts.strict, "strict", false, "only accept a listed choice")
	f.BoolVar(&opts.matchDescription, "match-description", false, "also filter on descriptions")
	f.StringArrayVar(&opts.flagSpecs, "flag", nil, "declare a flag as key[=shortcut][:Name] (repeatable)")
	f.BoolVar(&opts.printFlag, "print-flag", false, "print the selected flag key on the first line")
	f.StringVar(&opts.historyKey, "history-key", "", "remember selections under this key and show them first")
	f.BoolVar(&opts.noHistory, "no-history", false, "neither show nor record recent selections")
	return cmd
}

// fallback reports msg on stderr and exits with exitFallback.
func fallback(w io.Writer, format string, args ...any) error {
	fmt.Fprintf(w, "palette: "+format+"\n", args...)
	return &exitError{code: exitFallback}
}

func runPick(cmd *cobra.Command, args []string, opts *pickOpts) error {
	stderr := cmd.ErrOrStderr()

	if err := validatePickOpts(opts); err != nil {
		return fallback(stderr, "%v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fallback(stderr, "failed to load config: %v", err)
	}
	applyConfigDefaults(cmd, cfg, opts)
	paths := config.DefaultPaths()

	logger, closeLog := openLogger(cfg, paths)
	defer closeLog()

	producer, err := loadChoices(cmd.InOrStdin(), args, opts)
	if err != nil {
		return fallback(stderr, "%v", err)
	}
	flagOpts, err := parseFlagSpecs(opts.flagSpecs)
	if err != nil {
		return fallback(stderr, "%v", err)
	}

	if err := checkTERM(); err != nil {
		return fallback(stderr, "%v", err)
	}
	tty, err := openTTY()
	if err != nil {
		return fallback(stderr, "%v", err)
	}
	defer tty.Close()
	if w := termWidth(tty); w > 0 && w < minTermWidth {
		return fallback(stderr, "terminal too narrow (%d columns, need at least %d)", w, minTermWidth)
	}

	if err := os.MkdirAll(paths.CacheDir, 0755); err != nil {
		return fallback(stderr, "failed to create cache directory: %v", err)
	}
	unlock, err := acquireLock(paths.LockFile())
	if err != nil {
		return fallback(stderr, "%v", err)
	}
	defer unlock()

	var store *history.Store
	if useHistory(cfg, opts) {
		store, err = history.Open(historyPath(cfg, paths))
		if err != nil {
			logger.Warn("history unavailable", "error", err)
		} else {
			defer store.Close()
			producer = source.Concat(store.Source(opts.historyKey, cfg.History.Limit, logger), producer)
		}
	}

	bridge := tui.NewBridge()
	session, err := prompt.New(promptConfig(cfg, opts, producer, flagOpts, bridge, logger))
	if err != nil {
		return fallback(stderr, "%v", err)
	}

	// stdout is usually a pipe under $(...), so take the colour profile
	// from the terminal the prompt draws on.
	lipgloss.SetColorProfile(tui.ColorProfile(cfg.UI.Color, termenv.NewOutput(tty)))
	styles := tui.DefaultStyles(cfg.UI.Highlight)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := tui.Run(ctx, session, bridge, tui.Options{
		Message: opts.message,
		MaxRows: cfg.UI.MaxRows,
		MenuKey: cfg.Prompt.FlagsMenuKey,
		Styles:  &styles,
	}, tea.WithInput(tty), tea.WithOutput(tty))
	switch {
	case errors.Is(err, prompt.ErrTimeout):
		logger.Info("prompt timed out", "session", session.ID())
		return &exitError{code: exitCancelled}
	case errors.Is(err, prompt.ErrAborted):
		logger.Debug("prompt cancelled", "session", session.ID())
		return &exitError{code: exitCancelled}
	case err != nil:
		return fallback(stderr, "prompt failed: %v", err)
	}

	if err := writeResult(cmd.OutOrStdout(), res, opts); err != nil {
		return fallback(stderr, "failed to write result: %v", err)
	}

	if store != nil {
		recordSelection(cmd.Context(), store, cfg, opts.historyKey, res, logger)
	}
	return nil
}

func validatePickOpts(opts *pickOpts) error {
	if opts.output != "plain" && opts.output != "json" {
		return fmt.Errorf("--output must be \"plain\" or \"json\" (got %q)", opts.output)
	}
	if opts.timeout < 0 {
		return errors.New("--timeout must not be negative")
	}
	input, err := sanitizeQuery(opts.input)
	if err != nil {
		return fmt.Errorf("--query: %w", err)
	}
	opts.input = input
	return nil
}

// sanitizeQuery strips control characters and validates the query string.
func sanitizeQuery(q string) (string, error) {
	if q == "" {
		return "", nil
	}
	if strings.ContainsAny(q, "\n\r") {
		return "", errors.New("query must not contain newlines")
	}

	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if r <= 0x1F && r != 0x09 {
			continue
		}
		b.WriteRune(r)
	}
	result := b.String()
	if len(result) > maxInputLen {
		cut := maxInputLen
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut]
	}
	return result, nil
}

// applyConfigDefaults fills options the user did not pass from config.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config, opts *pickOpts) {
	f := cmd.Flags()
	if !f.Changed("timeout") {
		opts.timeout = cfg.Prompt.Timeout()
	}
	if !f.Changed("strict") {
		opts.strict = cfg.Prompt.Strict
	}
	if !f.Changed("match-description") {
		opts.matchDescription = cfg.Prompt.MatchDescription
	}
}

// loadChoices picks the choice source: arguments, then --file, then stdin.
func loadChoices(stdin io.Reader, args []string, opts *pickOpts) (source.Producer, error) {
	if len(args) > 0 {
		if opts.jsonInput {
			return nil, errors.New("--json cannot be combined with choice arguments")
		}
		return source.Static(model.Strings(args...)), nil
	}

	r := stdin
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, fmt.Errorf("open choices: %w", err)
		}
		defer f.Close()
		r = f
	} else if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return nil, errors.New("no choices: pass them as arguments, with --file, or on stdin")
	}

	if opts.jsonInput {
		return source.JSON(r)
	}
	return source.Lines(r)
}

// parseFlagSpecs turns key[=shortcut][:Name] specs into flag options.
func parseFlagSpecs(specs []string) (flags.Options, error) {
	if len(specs) == 0 {
		return flags.Options{}, nil
	}
	declared := make(map[string]flags.Flag, len(specs))
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		head, name, _ := strings.Cut(spec, ":")
		key, shortcut, _ := strings.Cut(head, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return flags.Options{}, fmt.Errorf("--flag %q: missing key", spec)
		}
		if _, dup := declared[key]; dup {
			return flags.Options{}, fmt.Errorf("--flag %q: duplicate key %q", spec, key)
		}
		declared[key] = flags.Flag{
			Name:     strings.TrimSpace(name),
			Shortcut: strings.TrimSpace(shortcut),
			Bar:      barFor(shortcut),
		}
		order = append(order, key)
	}
	return flags.Map(declared, order...), nil
}

// barFor shows flags with a shortcut in the footer.
func barFor(shortcut string) string {
	if strings.TrimSpace(shortcut) == "" {
		return ""
	}
	return flags.BarRight
}

func useHistory(cfg *config.Config, opts *pickOpts) bool {
	return cfg.History.Enabled && !opts.noHistory && opts.historyKey != ""
}

func historyPath(cfg *config.Config, paths *config.Paths) string {
	if cfg.History.DBPath != "" {
		return cfg.History.DBPath
	}
	return paths.HistoryFile()
}

func promptConfig(cfg *config.Config, opts *pickOpts, producer source.Producer, flagOpts flags.Options, r prompt.Renderer, logger *slog.Logger) prompt.Config {
	debounce := cfg.Prompt.DebounceInput()
	if debounce == 0 {
		debounce = -1
	}
	return prompt.Config{
		Choices:             producer,
		Flags:               flagOpts,
		DebounceInput:       debounce,
		DebounceChoiceFocus: cfg.Prompt.DebounceChoiceFocus(),
		Timeout:             opts.timeout,
		Input:               opts.input,
		Placeholder:         opts.placeholder,
		Hint:                opts.hint,
		Strict:              opts.strict,
		NoWrap:              !cfg.Prompt.Wrap,
		MatchDescription:    opts.matchDescription,
		FlagsMenuKey:        cfg.Prompt.FlagsMenuKey,
		Renderer:            r,
		Logger:              logger,
	}
}

// pickResult is the --output json shape.
type pickResult struct {
	Value any    `json:"value"`
	Name  string `json:"name,omitempty"`
	Flag  string `json:"flag,omitempty"`
	Input string `json:"input"`
}

// writeResult prints the selection. Plain output is the value, preceded
// by the flag line when --print-flag is set.
func writeResult(w io.Writer, res prompt.Result, opts *pickOpts) error {
	if opts.output == "json" {
		out := pickResult{Value: res.Value, Flag: res.Flag, Input: res.Input}
		if res.Choice != nil {
			out.Name = res.Choice.Name
		}
		return json.NewEncoder(w).Encode(out)
	}

	if opts.printFlag {
		if _, err := fmt.Fprintln(w, res.Flag); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, valueString(res.Value))
	return err
}

func valueString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprint(v)
	}
}

func recordSelection(ctx context.Context, store *history.Store, cfg *config.Config, key string, res prompt.Result, logger *slog.Logger) {
	entry := history.Entry{
		Key:   key,
		Value: valueString(res.Value),
		Flag:  res.Flag,
		Input: res.Input,
	}
	if res.Choice != nil {
		entry.Name = res.Choice.Name
	}
	if _, err := store.Record(ctx, entry); err != nil {
		logger.Warn("failed to record selection", "error", err)
		return
	}
	if _, err := store.Prune(ctx, key, cfg.History.Keep); err != nil {
		logger.Warn("failed to prune history", "error", err)
	}
}

// openLogger writes logs to the configured file; the terminal belongs to
// the prompt. Failures fall back to discarding.
func openLogger(cfg *config.Config, paths *config.Paths) (*slog.Logger, func()) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	path := cfg.Log.File
	if path == "" {
		path = paths.LogFile()
	}
	logger, closer, err := logging.OpenFile(path, level)
	if err != nil {
		return logging.Discard(), func() {}
	}
	return logger, func() { _ = closer.Close() }
}
