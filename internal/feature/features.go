// Package feature derives demand characteristics (ADI, CV²) from a demand
// series and routes each item to a forecasting algorithm using the
// Syntetos-Boylan classification.
package feature

import (
	"math"

	"github.com/sparecast/sparecast/internal/domain"
)

// Infinite is the sentinel for ADI/CV² when a series has no demand at all.
const Infinite = math.MaxFloat64

// Config holds the routing thresholds.
type Config struct {
	// MinDataPoints is the minimum number of nonzero months; below it the
	// item always routes to the fallback forecaster.
	MinDataPoints int
	// ADIThreshold: mean inter-demand interval above this is intermittent.
	ADIThreshold float64
	// CV2Threshold: squared coefficient of variation above this is erratic.
	CV2Threshold float64
}

// DefaultConfig returns the standard Syntetos-Boylan cut points.
func DefaultConfig() Config {
	return Config{
		MinDataPoints: 3,
		ADIThreshold:  1.32,
		CV2Threshold:  0.49,
	}
}

// ADI computes the average demand interval: series length divided by the
// number of nonzero months. A series with no demand returns Infinite.
func ADI(series domain.DemandSeries) float64 {
	if len(series) == 0 {
		return Infinite
	}
	nonzero := series.NonzeroCount()
	if nonzero == 0 {
		return Infinite
	}
	return float64(len(series)) / float64(nonzero)
}

// CV2 computes the squared coefficient of variation over the nonzero months
// only. Fewer than 2 nonzero months yields 0: there is no spread to measure.
func CV2(series domain.DemandSeries) float64 {
	nonzero := make([]float64, 0, len(series))
	for _, d := range series {
		if d > 0 {
			nonzero = append(nonzero, float64(d))
		}
	}
	if len(nonzero) < 2 {
		return 0
	}

	var sum float64
	for _, d := range nonzero {
		sum += d
	}
	mean := sum / float64(len(nonzero))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, d := range nonzero {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(nonzero))

	cv := math.Sqrt(variance) / mean
	return cv * cv
}

// Extract computes the features for one series and assigns the algorithm
// family. Routing order matters: data sufficiency first, then the
// intermittency test, then the regular-demand default.
func Extract(series domain.DemandSeries, cfg Config) domain.Features {
	f := domain.Features{
		ADI: ADI(series),
		CV2: CV2(series),
	}

	switch {
	case series.NonzeroCount() < cfg.MinDataPoints:
		f.Algorithm = domain.AlgorithmFallback
	case f.ADI > cfg.ADIThreshold && f.CV2 > cfg.CV2Threshold:
		f.Algorithm = domain.AlgorithmIntermittent
	default:
		f.Algorithm = domain.AlgorithmRegression
	}

	return f
}
