// Package forecast implements the demand forecasting strategies: a
// regression model for regular demand, the Syntetos-Boylan Approximation
// for intermittent demand, and a nonzero-mean fallback for everything the
// other two cannot handle.
package forecast

import (
	"math"

	"github.com/sparecast/sparecast/internal/domain"
)

// ModelVersion is stamped onto every produced forecast row.
const ModelVersion = "v1.0"

// zScore90 is the one-sided normal z for a 90% interval.
const zScore90 = 1.645

// Config holds the strategy tunables.
type Config struct {
	// MinDataPoints mirrors the routing threshold: below it every strategy
	// degrades to the fallback result.
	MinDataPoints int
	// Alpha smooths the nonzero demand size, Beta the inter-demand
	// interval (SBA).
	Alpha float64
	Beta  float64
	// LagWindow is the number of trailing months used to build regression
	// features.
	LagWindow int
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		MinDataPoints: 3,
		Alpha:         0.15,
		Beta:          0.10,
		LagWindow:     3,
	}
}

// Forecaster produces a one-month-ahead forecast from a demand series.
// Implementations are stateless and safe for concurrent use across items.
type Forecaster interface {
	Forecast(series domain.DemandSeries) domain.ForecastResult
}

// New returns the strategy for an algorithm family.
func New(algo domain.Algorithm, cfg Config) Forecaster {
	switch algo {
	case domain.AlgorithmRegression:
		return &RegressionForecaster{cfg: cfg}
	case domain.AlgorithmIntermittent:
		return &IntermittentForecaster{cfg: cfg}
	default:
		return &FallbackForecaster{}
	}
}

// fallbackResult builds the safe default forecast: the mean of nonzero
// historical months (0 if none), a ±50% band, and no accuracy score. Every
// strategy degrades to this on insufficient or degenerate input.
func fallbackResult(series domain.DemandSeries) domain.ForecastResult {
	var sum, count float64
	for _, d := range series {
		if d > 0 {
			sum += float64(d)
			count++
		}
	}

	mean := 0.0
	if count > 0 {
		mean = sum / count
	}

	return domain.ForecastResult{
		Quantity:     round2(mean),
		LowerBound:   round2(mean * 0.5),
		UpperBound:   round2(mean * 1.5),
		Algorithm:    domain.AlgorithmFallback,
		MASE:         nil,
		ModelVersion: ModelVersion,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
