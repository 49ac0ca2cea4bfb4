package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/palette/internal/filter"
	"github.com/runger/palette/internal/model"
	"github.com/runger/palette/internal/source"
)

func TestSource_RecentGroupFirst(t *testing.T) {
	s := newTestStore(t)
	record(t, s, "pick", "beta", "alpha")

	p := source.Concat(s.Source("pick", 5, nil), source.Static(model.Strings("alpha", "beta", "gamma")))
	assert.False(t, p.Dynamic())

	var all []model.Choice
	for batch, err := range p.Produce(context.Background(), "") {
		require.NoError(t, err)
		all = append(all, batch...)
	}
	require.Len(t, all, 6)
	assert.True(t, all[0].Skip)
	assert.Equal(t, RecentGroup, all[0].Name)
	assert.Equal(t, "alpha", all[1].Value)
	assert.Equal(t, "recent:alpha", all[1].Key())

	ranked := filter.Score(all, "", filter.Options{})
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Recent", "alpha", "beta", "alpha", "beta", "gamma"}, names)
}

func TestSource_EmptyHistoryYieldsNothing(t *testing.T) {
	s := newTestStore(t)

	var batches int
	for _, err := range s.Source("none", 5, nil).Produce(context.Background(), "") {
		require.NoError(t, err)
		batches++
	}
	assert.Zero(t, batches)
}

func TestSource_ClosedStoreIsBestEffort(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	for _, err := range s.Source("k", 5, nil).Produce(context.Background(), "") {
		assert.NoError(t, err)
	}
}

func TestChoices_NameFallsBackToValue(t *testing.T) {
	got := Choices([]Entry{{Value: "v", Flag: "open"}, {Value: "w", Name: "Dub"}})
	require.Len(t, got, 3)
	assert.Equal(t, "v", got[1].Name)
	assert.Equal(t, "open", got[1].Tag)
	assert.Equal(t, "Dub", got[2].Name)
}
