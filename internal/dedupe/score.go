package dedupe

import (
	"math"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/similarity"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/textnorm"
)

// Factor weights. Category evidence adds to the total instead of taking weight from the others.
const (
	WeightAmount      = 0.40
	WeightDescription = 0.35
	WeightDate        = 0.15
	WeightAccount     = 0.10
	WeightCategory    = 0.05
)

// Breakdown holds each factor of a pairwise score.
type Breakdown struct {
	Amount          float64
	Description     float64
	Date            float64
	Account         float64
	Category        float64
	Score           float64
	AccountApplied  bool
	CategoryApplied bool
}

// PairBreakdown scores how likely a and b are the same transaction and reports
// every factor that went into it.
func PairBreakdown(a, b model.Transaction, s Settings) Breakdown {
	var br Breakdown

	if s.ExactMatchRequired {
		if a.Amount.Equal(b.Amount) {
			br.Amount = 1
		}
	} else {
		br.Amount = similarity.AmountScore(a.Amount, b.Amount, s.AmountTolerance)
	}
	br.Description = descriptionScore(a.Description, b.Description)
	br.Date = similarity.DateScore(a.Date, b.Date, s.DaysTolerance)

	total := WeightAmount*br.Amount + WeightDescription*br.Description + WeightDate*br.Date
	weights := WeightAmount + WeightDescription + WeightDate

	if s.ConsiderAccount {
		br.AccountApplied = true
		if a.AccountID == b.AccountID {
			br.Account = 1
		}
		total += WeightAccount * br.Account
		weights += WeightAccount
	}

	if s.ConsiderCategory && a.HasCategory() && b.HasCategory() {
		br.CategoryApplied = true
		if a.CategoryID == b.CategoryID {
			br.Category = 1
		}
		total += WeightCategory * br.Category
		weights += WeightCategory
	}

	br.Score = bound(total / weights)
	return br
}

// PairScore is the weighted similarity of two transactions, in [0, 1].
func PairScore(a, b model.Transaction, s Settings) float64 {
	return PairBreakdown(a, b, s).Score
}

// descriptionScore compares two descriptions after normalization. Equal
// normalized text scores 1 even when empty; one empty side scores 0.
func descriptionScore(a, b string) float64 {
	na := textnorm.NormalizeForMatch(a)
	nb := textnorm.NormalizeForMatch(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	jaccard := similarity.Jaccard(similarity.WordSet(na), similarity.WordSet(nb))
	return bound(max(jaccard, similarity.LCSRatio(na, nb)))
}

func bound(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
