package filter

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/palette/internal/model"
)

func namesOf(scored []model.ScoredChoice) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Name
	}
	return out
}

func TestScore_PrefixRanksFirst(t *testing.T) {
	choices := model.Strings("apple", "banana", "avocado")

	got := Score(choices, "a", Options{})

	assert.Equal(t, []string{"apple", "avocado", "banana"}, namesOf(got))
}

func TestScore_EmptyInputKeepsSourceOrder(t *testing.T) {
	choices := model.Strings("b", "a", "c")

	got := Score(choices, "   ", Options{})

	assert.Equal(t, []string{"b", "a", "c"}, namesOf(got))
	for _, s := range got {
		assert.Zero(t, s.Score)
		assert.Empty(t, s.Matches)
	}
}

func TestScore_Deterministic(t *testing.T) {
	choices := model.Strings("checkout", "cherry-pick", "commit", "clone", "cat")

	first := Score(choices, "c", Options{})
	for range 5 {
		assert.Equal(t, first, Score(choices, "c", Options{}))
	}
}

func TestScore_TiesKeepSourceOrder(t *testing.T) {
	choices := []model.Choice{
		{ID: "one", Name: "same"},
		{ID: "two", Name: "same"},
		{ID: "three", Name: "same"},
	}

	got := Score(choices, "sa", Options{})

	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].ID)
	assert.Equal(t, "two", got[1].ID)
	assert.Equal(t, "three", got[2].ID)
}

func TestScore_Spans(t *testing.T) {
	got := Score(model.Strings("apple"), "ap", Options{})

	require.Len(t, got, 1)
	assert.Equal(t, []model.Span{{Start: 0, End: 2}}, got[0].Matches[model.FieldName])
}

func TestScore_SpansAreRuneOffsets(t *testing.T) {
	got := Score(model.Strings("café bar"), "bar", Options{})

	require.Len(t, got, 1)
	assert.Equal(t, []model.Span{{Start: 5, End: 8}}, got[0].Matches[model.FieldName])
}

func TestScore_SpansInBoundsAndDisjoint(t *testing.T) {
	choices := model.Strings("git checkout main", "go test ./...", "über straße", "kubectl get pods")

	for _, input := range []string{"g", "gt", "t s", "ß", "ko", "get po"} {
		for _, s := range Score(choices, input, Options{}) {
			spans := s.Matches[model.FieldName]
			n := utf8.RuneCountInString(s.Name)
			for i, sp := range spans {
				assert.GreaterOrEqual(t, sp.Start, 0, "%q in %q", input, s.Name)
				assert.Less(t, sp.Start, sp.End, "%q in %q", input, s.Name)
				assert.LessOrEqual(t, sp.End, n, "%q in %q", input, s.Name)
				if i > 0 {
					assert.Less(t, spans[i-1].End, sp.Start, "%q in %q", input, s.Name)
				}
			}
		}
	}
}

func TestScore_AllTermsMustMatch(t *testing.T) {
	choices := model.Strings("git push origin", "git pull", "push")

	got := Score(choices, "git push", Options{})

	assert.Equal(t, []string{"git push origin"}, namesOf(got))
	spans := got[0].Matches[model.FieldName]
	require.NotEmpty(t, spans)
	assert.Equal(t, 0, spans[0].Start)
}

func TestScore_NoMatch(t *testing.T) {
	got := Score(model.Strings("apple", "banana"), "zzz", Options{})
	assert.Empty(t, got)
}

func TestScore_MatchDescription(t *testing.T) {
	choices := []model.Choice{
		{Name: "Open", Description: "file in editor"},
		{Name: "Close", Description: "current tab"},
	}

	assert.Empty(t, Score(choices, "editor", Options{}))

	got := Score(choices, "editor", Options{MatchDescription: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Open", got[0].Name)
	assert.NotEmpty(t, got[0].Matches[model.FieldDescription])
	assert.Empty(t, got[0].Matches[model.FieldName])
}

func TestScore_Disabled(t *testing.T) {
	choices := []model.Choice{
		{Name: "zeta"},
		{Name: "create", Miss: true},
		{Name: "alpha"},
	}

	got := Score(choices, "alpha", Options{Disabled: true})

	assert.Equal(t, []string{"zeta", "create", "alpha"}, namesOf(got))
}

func groupedChoices() []model.Choice {
	return []model.Choice{
		{Name: "Fruit", Group: "Fruit", Skip: true},
		{Name: "apple", Group: "Fruit"},
		{Name: "banana", Group: "Fruit"},
		{Name: "Veg", Group: "Veg", Skip: true},
		{Name: "carrot", Group: "Veg"},
		{Name: "Create new", Miss: true},
		{Name: "Always", Pass: true},
	}
}

func TestScore_Policies_EmptyInput(t *testing.T) {
	got := Score(groupedChoices(), "", Options{})

	assert.Equal(t, []string{"Fruit", "apple", "banana", "Veg", "carrot", "Create new", "Always"}, namesOf(got))
}

func TestScore_Policies_HeaderFollowsGroup(t *testing.T) {
	got := Score(groupedChoices(), "carr", Options{})

	assert.Equal(t, []string{"Veg", "carrot", "Always"}, namesOf(got))
}

func TestScore_Policies_MissDroppedWithoutMatch(t *testing.T) {
	got := Score(groupedChoices(), "zzz", Options{})

	assert.Equal(t, []string{"Always"}, namesOf(got))
	assert.NotContains(t, namesOf(got), "Create new")
}

func TestScore_Policies_MissKeptWhenMatching(t *testing.T) {
	got := Score(groupedChoices(), "creat", Options{})

	assert.Equal(t, []string{"Create new", "Always"}, namesOf(got))
}

func TestScore_Policies_MissShownWithEmptyInput(t *testing.T) {
	choices := []model.Choice{{Name: "apple"}, {Name: "create new", Miss: true}}

	assert.Equal(t, []string{"apple", "create new"}, namesOf(Score(choices, "", Options{})))
	assert.Equal(t, []string{"apple"}, namesOf(Score(choices, "zzz", Options{})))
}

func TestScore_PassKeepsLeadingPosition(t *testing.T) {
	choices := []model.Choice{
		{Name: "Pinned", Pass: true},
		{Name: "apple"},
		{Name: "banana"},
		{Name: "avocado"},
	}

	got := Score(choices, "a", Options{})
	assert.Equal(t, []string{"Pinned", "apple", "avocado", "banana"}, namesOf(got))
	assert.Zero(t, got[0].Score)

	assert.Equal(t, []string{"Pinned"}, namesOf(Score(choices, "zzz", Options{})))
}

func TestScore_InfoRows(t *testing.T) {
	choices := []model.Choice{
		{Name: "apple"},
		{Name: "Type to search", Info: model.InfoAlways},
		{Name: "banana"},
		{Name: "No fruit found", Info: model.InfoOnNoChoices},
	}

	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"Type to search", "apple", "banana"}},
		{"ban", []string{"Type to search", "banana"}},
		{"zzz", []string{"Type to search", "No fruit found"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, namesOf(Score(choices, tt.input, Options{})), tt.input)
	}
}

func TestScore_InfoFallbackOnly(t *testing.T) {
	choices := []model.Choice{{Name: "x"}, {Name: "Nothing here", Info: model.InfoOnNoChoices}}

	assert.Equal(t, []string{"x"}, namesOf(Score(choices, "", Options{})))
	assert.Equal(t, []string{"Nothing here"}, namesOf(Score(choices, "q", Options{})))
}

func TestScore_GroupsStayClustered(t *testing.T) {
	choices := []model.Choice{
		{Name: "stash", Group: "git"},
		{Name: "ls", Group: "shell"},
		{Name: "status", Group: "git"},
		{Name: "sleep", Group: "shell"},
	}

	got := Score(choices, "s", Options{})

	require.Len(t, got, 4)
	assert.Equal(t, "git", got[0].Group)
	assert.Equal(t, "git", got[1].Group)
	assert.Equal(t, "shell", got[2].Group)
	assert.Equal(t, "shell", got[3].Group)
}

func TestScore_HideWithoutInput(t *testing.T) {
	choices := []model.Choice{
		{Name: "visible"},
		{Name: "hidden", HideWithoutInput: true},
	}

	assert.Equal(t, []string{"visible"}, namesOf(Score(choices, "", Options{})))
	assert.Equal(t, []string{"hidden"}, namesOf(Score(choices, "hid", Options{})))
}

func TestTerms(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"  git   push ", []string{"git", "push"}},
		{`"git push" origin`, []string{"git push", "origin"}},
		{"it's", []string{"it's"}},
		{"#tag", []string{"#tag"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Terms(tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClosest(t *testing.T) {
	choices := []model.Choice{
		{Name: "Commands", Skip: true},
		{Name: "commit"},
		{Name: "checkout"},
		{Name: "push"},
	}

	name, ok := Closest(choices, "comit")
	require.True(t, ok)
	assert.Equal(t, "commit", name)

	_, ok = Closest(choices, "xyzzy")
	assert.False(t, ok)

	_, ok = Closest(choices, "")
	assert.False(t, ok)
}
