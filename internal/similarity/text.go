package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/textnorm"
)

// MinWordLength is the length a word must exceed to count in word-set comparisons.
const MinWordLength = 2

// WordSet builds the set of whitespace-separated words of normalized text
// that are longer than MinWordLength runes.
func WordSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range textnorm.Words(normalized, MinWordLength) {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns the intersection-over-union of two word sets.
// Two empty sets share nothing and score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// LCSLength returns the length, in runes, of the longest common subsequence of a and b.
func LCSLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LCSRatio returns 2*LCS(a, b) / (len(a) + len(b)), measured in runes.
func LCSRatio(a, b string) float64 {
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 0
	}
	return clamp(2 * float64(LCSLength(a, b)) / float64(total))
}

// Closest returns the candidate with the smallest case-insensitive edit distance
// to query, provided that distance is at most maxDistance.
func Closest(query string, candidates []string, maxDistance int) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))

	best := ""
	bestDistance := maxDistance + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(q, strings.ToLower(c))
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}

	if bestDistance > maxDistance {
		return "", false
	}
	return best, true
}
