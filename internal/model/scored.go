package model

import "sort"

// Match field names.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// Span is a half-open [Start, End) range of rune offsets.
type Span struct {
	Start int
	End   int
}

// Len returns the number of runes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// ScoredChoice is a choice ranked against the current input.
// Values are rebuilt on every input change and never mutated afterwards.
type ScoredChoice struct {
	Choice
	Score   int
	Matches map[string][]Span
}

// MergeSpans sorts spans and joins overlapping or touching ranges.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// SpansFromRunes converts ascending matched rune indexes into spans,
// joining consecutive indexes into one range.
func SpansFromRunes(idx []int) []Span {
	if len(idx) == 0 {
		return nil
	}
	var out []Span
	cur := Span{Start: idx[0], End: idx[0] + 1}
	for _, i := range idx[1:] {
		if i == cur.End {
			cur.End++
			continue
		}
		out = append(out, cur)
		cur = Span{Start: i, End: i + 1}
	}
	return append(out, cur)
}
