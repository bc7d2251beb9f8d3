// Package similarity provides the bounded numeric and string similarity
// functions the duplicate and classification engines are built from.
// Every score returned here lies in [0, 1].
package similarity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// AmountScore compares two amounts against a fractional tolerance of their average
// magnitude. Equal amounts score 1; a difference above the tolerance scores 0;
// in between the score decreases linearly.
func AmountScore(a, b decimal.Decimal, tolerance float64) float64 {
	diff := a.Sub(b).Abs()
	if diff.IsZero() {
		return 1
	}

	allowed := a.Abs().Add(b.Abs()).Div(two).Mul(decimal.NewFromFloat(tolerance))
	if !allowed.IsPositive() || diff.GreaterThan(allowed) {
		return 0
	}

	return clamp(1 - diff.Div(allowed).InexactFloat64())
}

// DateScore compares two dates at calendar-day granularity. The same day scores 1,
// a gap beyond daysTolerance scores 0, and gaps in between decrease linearly.
func DateScore(a, b time.Time, daysTolerance int) float64 {
	days := DayDiff(a, b)
	if days == 0 {
		return 1
	}
	if daysTolerance <= 0 || days > daysTolerance {
		return 0
	}
	return clamp(1 - float64(days)/float64(daysTolerance))
}

// DayDiff returns the absolute number of calendar days between a and b,
// each taken in its own location.
func DayDiff(a, b time.Time) int {
	da := civilDay(a)
	db := civilDay(b)
	hours := math.Abs(da.Sub(db).Hours())
	return int(math.Round(hours / 24))
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
