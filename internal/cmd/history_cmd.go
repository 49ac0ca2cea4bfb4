package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runger/palette/internal/config"
	"github.com/runger/palette/internal/history"
)

type historyOpts struct {
	limit int
	clear bool
	prune int
}

func newHistoryCmd() *cobra.Command {
	opts := &historyOpts{}
	cmd := &cobra.Command{
		Use:     "history [key]",
		Short:   "Show or clear remembered selections",
		GroupID: groupCore,
		Long: `Show the selections remembered by pick --history-key.

Without a key, lists every key with its entry count.
With a key, lists the most recent selections for it.

Examples:
  palette history                  # List keys
  palette history deploy           # Recent picks for "deploy"
  palette history deploy --clear   # Forget "deploy"
  palette history --prune 50       # Keep 50 entries per key`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.limit, "limit", "n", 20, "maximum entries to show for a key")
	f.BoolVar(&opts.clear, "clear", false, "delete the entries of the key, or all entries without a key")
	f.IntVar(&opts.prune, "prune", 0, "keep only this many newest entries per key")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *historyOpts) error {
	if opts.limit <= 0 {
		return errors.New("--limit must be positive")
	}
	if opts.prune < 0 {
		return errors.New("--prune must not be negative")
	}
	if opts.clear && opts.prune > 0 {
		return errors.New("--clear and --prune are mutually exclusive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := history.Open(historyPath(cfg, config.DefaultPaths()))
	if err != nil {
		return err
	}
	defer store.Close()

	key := ""
	if len(args) == 1 {
		key = args[0]
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	switch {
	case opts.clear:
		n, err := store.Clear(ctx, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%sCleared%s %s\n", colorGreen, colorReset, entries(n))
		return nil
	case opts.prune > 0:
		return pruneHistory(cmd, store, key, opts.prune)
	case key != "":
		recent, err := store.Recent(ctx, key, opts.limit)
		if err != nil {
			return err
		}
		return printRecent(out, key, recent)
	default:
		keys, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		return printKeys(out, keys)
	}
}

func pruneHistory(cmd *cobra.Command, store *history.Store, key string, keep int) error {
	ctx := cmd.Context()
	keys := []string{key}
	if key == "" {
		stats, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		keys = keys[:0]
		for _, s := range stats {
			keys = append(keys, s.Key)
		}
	}

	var total int64
	for _, k := range keys {
		n, err := store.Prune(ctx, k, keep)
		if err != nil {
			return fmt.Errorf("prune %q: %w", k, err)
		}
		total += n
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sPruned%s %s\n", colorGreen, colorReset, entries(total))
	return nil
}

func printKeys(w io.Writer, keys []history.KeyStats) error {
	if len(keys) == 0 {
		fmt.Fprintf(w, "%sNo history yet.%s\n", colorDim, colorReset)
		return nil
	}

	width := 0
	for _, k := range keys {
		width = max(width, len(k.Key))
	}
	fmt.Fprintf(w, "%sHistory Keys%s\n", colorBold, colorReset)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s%-*s%s  %5s  %s%s%s\n",
			colorCyan, width, k.Key, colorReset,
			humanize.Comma(int64(k.Count)),
			colorDim, humanize.Time(k.Last), colorReset)
	}
	return nil
}

func printRecent(w io.Writer, key string, recent []history.Entry) error {
	if len(recent) == 0 {
		fmt.Fprintf(w, "%sNo history for %q.%s\n", colorDim, key, colorReset)
		return nil
	}
	for _, e := range recent {
		label := e.Value
		if e.Name != "" && e.Name != e.Value {
			label = fmt.Sprintf("%s %s(%s)%s", e.Name, colorDim, e.Value, colorReset)
		}
		if e.Flag != "" {
			label += fmt.Sprintf(" %s[%s]%s", colorYellow, e.Flag, colorReset)
		}
		fmt.Fprintf(w, "  %s  %s%s%s\n", label, colorDim, humanize.Time(e.SelectedAt), colorReset)
	}
	return nil
}

func entries(n int64) string {
	if n == 1 {
		return "1 entry"
	}
	return humanize.Comma(n) + " entries"
}
