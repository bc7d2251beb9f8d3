package dedupe

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/similarity"
)

const (
	// GroupThreshold is the pairwise score a transaction needs against an anchor to join its group.
	GroupThreshold = 0.7
	// LargeBatchSize is the input size above which detection logs a warning.
	// Detection compares every pair, so cost grows with the square of the input.
	LargeBatchSize = 500

	removeThreshold = 0.95
	mergeThreshold  = 0.8

	reasonFallback = "múltiplos critérios"
)

// Detector groups likely duplicate transactions.
//
// A Detector holds no locks; callers sharing one across goroutines must
// serialise access themselves.
type Detector struct {
	settings Settings
}

// NewDetector creates a detector with the given settings.
func NewDetector(settings Settings) *Detector {
	return &Detector{settings: settings}
}

// Settings returns a copy of the current settings.
func (d *Detector) Settings() Settings {
	return d.settings
}

// SetSettings replaces the settings. Values are not validated.
func (d *Detector) SetSettings(settings Settings) {
	d.settings = settings
}

// UpdateSettings merges a partial update into the current settings and returns the result.
func (d *Detector) UpdateSettings(update SettingsUpdate) Settings {
	d.settings = update.Apply(d.settings)
	return d.settings
}

// PairScore scores two transactions with the detector's settings.
func (d *Detector) PairScore(a, b model.Transaction) float64 {
	return PairScore(a, b, d.settings)
}

// Explain returns the factor breakdown for two transactions.
func (d *Detector) Explain(a, b model.Transaction) Breakdown {
	return PairBreakdown(a, b, d.settings)
}

type candidate struct {
	index int
	score float64
}

// DetectDuplicates clusters transactions into non-overlapping duplicate groups.
//
// Transactions are visited in input order. Each unclaimed transaction becomes an
// anchor and claims every later unclaimed transaction scoring at least
// GroupThreshold against it. Candidates are compared to the anchor only, never to
// each other. Groups are returned by descending confidence.
func (d *Detector) DetectDuplicates(txns []model.Transaction) []model.DuplicateGroup {
	if len(txns) > LargeBatchSize {
		slog.Warn("Duplicate detection on a large batch compares every pair and may be slow",
			"transactions", len(txns),
			"recommended_max", LargeBatchSize)
	}

	eligible := d.eligible(txns)
	claimed := make([]bool, len(eligible))
	groups := []model.DuplicateGroup{}

	for i := range eligible {
		if claimed[i] {
			continue
		}

		var candidates []candidate
		for j := i + 1; j < len(eligible); j++ {
			if claimed[j] {
				continue
			}
			if score := d.PairScore(eligible[i], eligible[j]); score >= GroupThreshold {
				candidates = append(candidates, candidate{index: j, score: score})
			}
		}
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})

		members := make([]model.Transaction, 0, len(candidates)+1)
		members = append(members, eligible[i])
		claimed[i] = true
		for _, c := range candidates {
			members = append(members, eligible[c.index])
			claimed[c.index] = true
		}

		confidence := d.meanPairScore(members)
		groups = append(groups, model.DuplicateGroup{
			ID:              "group-" + eligible[i].ID,
			Transactions:    members,
			Confidence:      confidence,
			Reason:          d.reason(members[0], members[1]),
			SuggestedAction: SuggestedAction(confidence),
		})
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Confidence > groups[b].Confidence
	})

	slog.Debug("Duplicate detection finished",
		"transactions", len(txns),
		"eligible", len(eligible),
		"groups", len(groups))

	return groups
}

func (d *Detector) eligible(txns []model.Transaction) []model.Transaction {
	if !d.settings.IgnoreSmallAmounts {
		return txns
	}

	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Amount.Abs().LessThan(d.settings.SmallAmountThreshold) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (d *Detector) meanPairScore(members []model.Transaction) float64 {
	var sum float64
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += d.PairScore(members[i], members[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// reason explains why the anchor and its best candidate were grouped.
func (d *Detector) reason(anchor, best model.Transaction) string {
	var parts []string

	switch {
	case anchor.Amount.Equal(best.Amount):
		parts = append(parts, "valor idêntico")
	case similarity.AmountScore(anchor.Amount, best.Amount, d.settings.AmountTolerance) > 0.9:
		parts = append(parts, "valor similar")
	}
	if descriptionScore(anchor.Description, best.Description) > 0.9 {
		parts = append(parts, "descrição similar")
	}
	if similarity.DayDiff(anchor.Date, best.Date) <= 1 {
		parts = append(parts, "data próxima")
	}
	if d.settings.ConsiderAccount && anchor.AccountID == best.AccountID {
		parts = append(parts, "mesma conta")
	}

	if len(parts) == 0 {
		return reasonFallback
	}
	return strings.Join(parts, ", ")
}

// SuggestedAction maps a group confidence to the action detection proposes.
func SuggestedAction(confidence float64) model.DuplicateAction {
	switch {
	case confidence > removeThreshold:
		return model.ActionRemoveDuplicates
	case confidence > mergeThreshold:
		return model.ActionMerge
	default:
		return model.ActionKeepAll
	}
}
