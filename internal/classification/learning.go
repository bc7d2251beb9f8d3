package classification

import (
	"sort"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/similarity"
)

const (
	// learningMinSimilarity is the word-overlap a learned description needs to be considered.
	learningMinSimilarity = 0.6
	// learningWeight scales a learned match's similarity into a confidence.
	learningWeight = 0.8
)

type learningKey struct {
	description string
	categoryID  string
}

// learningMemory counts confirmed (normalized description, category) pairs.
// It is additive and owned by a single Engine.
type learningMemory struct {
	counts map[string]map[string]int
	words  map[string]map[string]struct{}
	order  []learningKey
}

type learningMatch struct {
	categoryID string
	similarity float64
	count      int
}

func newLearningMemory() *learningMemory {
	return &learningMemory{
		counts: make(map[string]map[string]int),
		words:  make(map[string]map[string]struct{}),
	}
}

func (m *learningMemory) observe(description, categoryID string) {
	byCategory, ok := m.counts[description]
	if !ok {
		byCategory = make(map[string]int)
		m.counts[description] = byCategory
		m.words[description] = similarity.WordSet(description)
	}

	if _, seen := byCategory[categoryID]; !seen {
		m.order = append(m.order, learningKey{description: description, categoryID: categoryID})
	}
	byCategory[categoryID]++
}

func (m *learningMemory) size() int {
	return len(m.order)
}

// bestMatch ranks learned pairs similar to description by similarity times
// observation count. Ties keep the pair learned first.
func (m *learningMemory) bestMatch(description string) (learningMatch, bool) {
	query := similarity.WordSet(description)
	if len(query) == 0 {
		return learningMatch{}, false
	}

	var matches []learningMatch
	for _, key := range m.order {
		sim := similarity.Jaccard(query, m.words[key.description])
		if sim <= learningMinSimilarity {
			continue
		}
		matches = append(matches, learningMatch{
			categoryID: key.categoryID,
			similarity: sim,
			count:      m.counts[key.description][key.categoryID],
		})
	}

	if len(matches) == 0 {
		return learningMatch{}, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity*float64(matches[i].count) > matches[j].similarity*float64(matches[j].count)
	})

	return matches[0], true
}
