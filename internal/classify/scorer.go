// Package classify implements the ABC/XYZ classification arithmetic: the
// four weighted sub-scores, the composite score, percentile-based ABC
// tiering, variability-based XYZ tiering, and the safety-stock / reorder
// point calculations. Everything here is pure arithmetic over the inputs.
package classify

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/feature"
)

// Composite score weights. They must sum to 1.
const (
	weightAnnualValue = 0.4
	weightCriticality = 0.3
	weightLeadTime    = 0.2
	weightDifficulty  = 0.1
)

// AnnualValue computes an item's yearly consumption value: total window
// demand times unit price.
func AnnualValue(series domain.DemandSeries, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(series.Sum())))
}

// AnnualValueScore min-max normalizes an item's annual consumption value
// against the run-wide maximum. When no item in the run consumed anything,
// every score is 0.
func AnnualValueScore(annualValue, maxAnnualValue decimal.Decimal) float64 {
	if maxAnnualValue.Sign() <= 0 {
		return 0
	}
	v, _ := annualValue.Div(maxAnnualValue).Float64()
	return v * 100
}

// CriticalityScore maps the equipment criticality tier to a score.
// Unrecognized values count as MEDIUM.
func CriticalityScore(c domain.Criticality) float64 {
	switch c {
	case domain.CriticalityHigh:
		return 100
	case domain.CriticalityLow:
		return 10
	default:
		return 50
	}
}

// DifficultyScore linearly maps the 1-5 substitution difficulty scale to
// 0-100. Out-of-range or missing values default to 3 (score 50).
func DifficultyScore(difficulty int) float64 {
	if difficulty < 1 || difficulty > 5 {
		difficulty = 3
	}
	return float64(difficulty-1) / 4.0 * 100
}

// CompositeScore combines the four sub-scores with the standard weights,
// rounded to 2 decimals.
func CompositeScore(annualValueScore, criticalityScore, leadTimeScore, difficultyScore float64) float64 {
	score := annualValueScore*weightAnnualValue +
		criticalityScore*weightCriticality +
		leadTimeScore*weightLeadTime +
		difficultyScore*weightDifficulty
	return Round(score, 2)
}

// AssignABC maps an item's rank (1 = highest composite score) among
// totalCount items to a tier: top 20% A, next 30% B, rest C.
func AssignABC(totalCount, rank int) domain.ABCClass {
	if totalCount <= 0 || rank <= 0 {
		return domain.ClassC
	}
	percentile := float64(rank) / float64(totalCount)
	switch {
	case percentile <= 0.20:
		return domain.ClassA
	case percentile <= 0.50:
		return domain.ClassB
	default:
		return domain.ClassC
	}
}

// DemandCV2 computes the squared coefficient of variation over the full
// series, zero months included: the stability measure behind XYZ tiering.
// A series that never had demand returns the infinite sentinel.
//
// Routing uses a different CV² (nonzero months only); see the feature
// package.
func DemandCV2(series domain.DemandSeries) float64 {
	if len(series) == 0 {
		return feature.Infinite
	}

	var sum float64
	for _, d := range series {
		sum += float64(d)
	}
	mean := sum / float64(len(series))
	if mean <= 0 {
		return feature.Infinite
	}

	var variance float64
	for _, d := range series {
		variance += (float64(d) - mean) * (float64(d) - mean)
	}
	variance /= float64(len(series))

	return variance / (mean * mean)
}

// AssignXYZ maps variability to a tier. Fewer than 3 months with demand
// always forces Z: stability cannot be judged on that little data.
func AssignXYZ(cv2 float64, nonzeroMonths int) domain.XYZClass {
	if nonzeroMonths < 3 {
		return domain.ClassZ
	}
	switch {
	case cv2 < 0.5:
		return domain.ClassX
	case cv2 < 1.0:
		return domain.ClassY
	default:
		return domain.ClassZ
	}
}

// MonthlyStdDev returns the population standard deviation of the monthly
// demand, zero months included.
func MonthlyStdDev(series domain.DemandSeries) float64 {
	if len(series) == 0 {
		return 0
	}

	var sum float64
	for _, d := range series {
		sum += float64(d)
	}
	mean := sum / float64(len(series))

	var variance float64
	for _, d := range series {
		variance += (float64(d) - mean) * (float64(d) - mean)
	}
	variance /= float64(len(series))

	return math.Sqrt(variance)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
