// Package filter ranks choices against the prompt input.
//
// Scoring is pure: the same choices and input always produce the same
// ordering. Ties keep the order the choices were given in.
package filter

import (
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/sahilm/fuzzy"

	"github.com/runger/palette/internal/model"
)

// Options tunes matching.
type Options struct {
	MatchDescription bool // Also match against descriptions
	Disabled         bool // Show everything unfiltered, in source order
}

// Terms splits input into match terms. Quoted phrases stay together when
// the quoting is balanced; anything else splits on whitespace.
func Terms(input string) []string {
	if strings.ContainsAny(input, `"'`) {
		if terms, err := shlex.Split(input); err == nil {
			return nonEmpty(terms)
		}
	}
	return strings.Fields(input)
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Score filters and ranks choices for input. Informational rows bypass
// scoring: InfoAlways rows lead the list, InfoOnNoChoices rows follow them
// only when nothing else is listed.
func Score(choices []model.Choice, input string, opts Options) []model.ScoredChoice {
	rows, always, fallback := splitInfo(choices)

	var ranked []model.ScoredChoice
	switch terms := Terms(input); {
	case opts.Disabled:
		ranked = make([]model.ScoredChoice, len(rows))
		for i, c := range rows {
			ranked[i] = model.ScoredChoice{Choice: c}
		}
	case len(terms) == 0:
		ranked = scoreEmpty(rows)
	default:
		ranked = scoreTerms(rows, terms, opts)
	}

	if len(always) == 0 && (len(fallback) == 0 || listed(ranked)) {
		return ranked
	}
	out := make([]model.ScoredChoice, 0, len(always)+len(fallback)+len(ranked))
	for _, c := range always {
		out = append(out, model.ScoredChoice{Choice: c})
	}
	if !listed(ranked) {
		for _, c := range fallback {
			out = append(out, model.ScoredChoice{Choice: c})
		}
	}
	return append(out, ranked...)
}

// splitInfo separates informational rows from the choices to rank.
func splitInfo(choices []model.Choice) (rows, always, fallback []model.Choice) {
	n := 0
	for _, c := range choices {
		if c.Info != "" {
			n++
		}
	}
	if n == 0 {
		return choices, nil, nil
	}
	rows = make([]model.Choice, 0, len(choices)-n)
	for _, c := range choices {
		switch c.Info {
		case "":
			rows = append(rows, c)
		case model.InfoOnNoChoices:
			fallback = append(fallback, c)
		default:
			always = append(always, c)
		}
	}
	return rows, always, fallback
}

// listed reports whether ranked holds anything the user can focus.
func listed(ranked []model.ScoredChoice) bool {
	for _, sc := range ranked {
		if sc.Focusable() {
			return true
		}
	}
	return false
}

type entry struct {
	pos    int // position in the input slice
	scored model.ScoredChoice
}

func scoreEmpty(choices []model.Choice) []model.ScoredChoice {
	var kept, passed []entry
	for i, c := range choices {
		switch {
		case c.Pass:
			passed = append(passed, entry{pos: i, scored: model.ScoredChoice{Choice: c}})
		case c.HideWithoutInput:
		default:
			kept = append(kept, entry{pos: i, scored: model.ScoredChoice{Choice: c}})
		}
	}
	return arrange(choices, kept, passed)
}

// names and descriptions adapt choice fields to fuzzy.Source.
type names []model.Choice

func (n names) String(i int) string { return n[i].Name }
func (n names) Len() int            { return len(n) }

type descriptions []model.Choice

func (d descriptions) String(i int) string { return d[i].Description }
func (d descriptions) Len() int            { return len(d) }

func scoreTerms(choices []model.Choice, terms []string, opts Options) []model.ScoredChoice {
	matched := make([]bool, len(choices))
	scores := make([]int, len(choices))
	spans := make([]map[string][]model.Span, len(choices))
	for i := range matched {
		matched[i] = true
	}

	for _, term := range terms {
		nameHits := hits(fuzzy.FindFrom(term, names(choices)))
		var descHits map[int]fuzzy.Match
		if opts.MatchDescription {
			descHits = hits(fuzzy.FindFrom(term, descriptions(choices)))
		}

		for i, c := range choices {
			if !matched[i] {
				continue
			}
			nm, inName := nameHits[i]
			dm, inDesc := descHits[i]
			if !inName && !inDesc {
				matched[i] = false
				continue
			}

			best := nm.Score
			if !inName || (inDesc && dm.Score > nm.Score) {
				best = dm.Score
			}
			scores[i] += best

			if spans[i] == nil {
				spans[i] = make(map[string][]model.Span)
			}
			if inName {
				spans[i][model.FieldName] = append(spans[i][model.FieldName], runeSpans(c.Name, nm.MatchedIndexes)...)
			}
			if inDesc {
				spans[i][model.FieldDescription] = append(spans[i][model.FieldDescription], runeSpans(c.Description, dm.MatchedIndexes)...)
			}
		}
	}

	var kept, passed []entry
	groups := make(map[string]bool)
	var headers []entry

	for i, c := range choices {
		sc := model.ScoredChoice{Choice: c}
		if matched[i] {
			sc.Score = scores[i]
			sc.Matches = mergeAll(spans[i])
		}
		e := entry{pos: i, scored: sc}

		switch {
		case c.Pass:
			passed = append(passed, e)
		case c.Skip:
			if matched[i] {
				kept = append(kept, e)
			} else {
				headers = append(headers, e)
			}
		default:
			// Regular and miss items alike stay only when they match.
			if matched[i] {
				kept = append(kept, e)
				groups[c.Group] = true
			}
		}
	}

	// Unmatched headers survive when their group still has members.
	for _, h := range headers {
		if h.scored.Group != "" && groups[h.scored.Group] {
			kept = append(kept, h)
		}
	}

	return arrange(choices, kept, passed)
}

// hits indexes fuzzy matches by choice position.
func hits(matches fuzzy.Matches) map[int]fuzzy.Match {
	out := make(map[int]fuzzy.Match, len(matches))
	for _, m := range matches {
		out[m.Index] = m
	}
	return out
}

func mergeAll(fields map[string][]model.Span) map[string][]model.Span {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string][]model.Span, len(fields))
	for k, v := range fields {
		if merged := model.MergeSpans(v); len(merged) > 0 {
			out[k] = merged
		}
	}
	return out
}

// arrange orders kept entries by group cluster, then header-first, score
// and source position, and finally puts pass-through entries back at
// their source positions.
func arrange(choices []model.Choice, kept, passed []entry) []model.ScoredChoice {
	rank := groupRanks(choices)
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if ra, rb := rank[a.scored.Group], rank[b.scored.Group]; ra != rb {
			return ra < rb
		}
		if a.scored.Skip != b.scored.Skip {
			return a.scored.Skip
		}
		if a.scored.Score != b.scored.Score {
			return a.scored.Score > b.scored.Score
		}
		return a.pos < b.pos
	})

	out := make([]model.ScoredChoice, 0, len(kept)+len(passed))
	for _, e := range kept {
		out = append(out, e.scored)
	}
	for _, p := range passed {
		at := p.pos
		if at > len(out) {
			at = len(out)
		}
		out = append(out, model.ScoredChoice{})
		copy(out[at+1:], out[at:])
		out[at] = p.scored
	}
	return out
}

// groupRanks maps each group label to the position it was first seen at.
// Without any group labels every choice shares rank 0.
func groupRanks(choices []model.Choice) map[string]int {
	rank := make(map[string]int)
	for _, c := range choices {
		if _, ok := rank[c.Group]; !ok {
			rank[c.Group] = len(rank)
		}
	}
	return rank
}

// runeSpans converts the matcher's byte offsets into rune spans. Offsets
// that do not start a rune are dropped, so spans always lie within s.
func runeSpans(s string, byteIdx []int) []model.Span {
	if len(byteIdx) == 0 {
		return nil
	}
	runeAt := make(map[int]int, len(s))
	n := 0
	for b := range s {
		runeAt[b] = n
		n++
	}
	idx := make([]int, 0, len(byteIdx))
	for _, b := range byteIdx {
		if r, ok := runeAt[b]; ok {
			idx = append(idx, r)
		}
	}
	sort.Ints(idx)
	return model.SpansFromRunes(dedupe(idx))
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
