package history

import (
	"context"
	"iter"
	"log/slog"

	"github.com/runger/palette/internal/model"
	"github.com/runger/palette/internal/source"
)

// RecentGroup labels history choices in a prompt.
const RecentGroup = "Recent"

type recentSource struct {
	store  *Store
	key    string
	limit  int
	logger *slog.Logger
}

// Source returns a producer of the recent selections under key, as a
// "Recent" group led by a header. It does not depend on the input, and a
// failing lookup is logged and yields nothing so the main list still
// loads behind it.
func (s *Store) Source(key string, limit int, logger *slog.Logger) source.Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return recentSource{store: s, key: key, limit: limit, logger: logger}
}

func (r recentSource) Dynamic() bool { return false }

func (r recentSource) Produce(ctx context.Context, _ string) iter.Seq2[[]model.Choice, error] {
	return func(yield func([]model.Choice, error) bool) {
		entries, err := r.store.Recent(ctx, r.key, r.limit)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Warn("history lookup failed", "key", r.key, "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}
		yield(Choices(entries), nil)
	}
}

// Choices converts entries into a header plus one choice per entry.
// Entry IDs are prefixed so they never collide with the main list.
func Choices(entries []Entry) []model.Choice {
	out := make([]model.Choice, 0, len(entries)+1)
	out = append(out, model.Choice{ID: "recent:", Name: RecentGroup, Group: RecentGroup, Skip: true})
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.Value
		}
		out = append(out, model.Choice{
			ID:    "recent:" + e.Value,
			Name:  name,
			Value: e.Value,
			Group: RecentGroup,
			Tag:   e.Flag,
		})
	}
	return out
}
