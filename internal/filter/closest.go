package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/runger/palette/internal/model"
)

// MinSimilarity is the lowest edit-distance similarity (0-1) at which
// Closest still suggests a name.
const MinSimilarity = 0.5

// Closest returns the focusable choice name most similar to input, for
// "did you mean" hints when nothing matched. Ties go to the earlier choice.
func Closest(choices []model.Choice, input string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return "", false
	}

	best, bestSim := "", 0.0
	for _, c := range choices {
		if c.Skip || c.Miss {
			continue
		}
		sim := similarity(needle, strings.ToLower(c.Name))
		if sim > bestSim {
			best, bestSim = c.Name, sim
		}
	}
	if bestSim < MinSimilarity {
		return "", false
	}
	return best, true
}

func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
