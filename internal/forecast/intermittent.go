package forecast

import (
	"math"

	"github.com/sparecast/sparecast/internal/domain"
)

// sbaWarmup excludes the first in-sample points from the MASE evaluation.
// Early SBA forecasts reflect the initialization, not the model, and the
// naive benchmark over long zero runs is unstable there.
const sbaWarmup = 2

// IntermittentForecaster implements the Syntetos-Boylan Approximation, a
// bias-corrected Croston variant for demand with long zero runs. Two
// exponentially smoothed states walk the series chronologically: z (nonzero
// demand size) and p (inter-demand interval); each step's forecast is
// (1 - beta/2) * z / p.
type IntermittentForecaster struct {
	cfg Config
}

func (f *IntermittentForecaster) Forecast(series domain.DemandSeries) domain.ForecastResult {
	if series.NonzeroCount() < f.cfg.MinDataPoints {
		return fallbackResult(series)
	}

	alpha, beta := f.cfg.Alpha, f.cfg.Beta

	// z initializes to the first observed nonzero demand, p to an interval
	// of one period.
	z := 0.0
	for _, d := range series {
		if d > 0 {
			z = float64(d)
			break
		}
	}
	p := 1.0
	q := 1 // months since the last nonzero demand

	fitted := make([]float64, 0, len(series))
	for _, d := range series {
		fitted = append(fitted, (1-beta/2)*(z/p))

		if d > 0 {
			z = alpha*float64(d) + (1-alpha)*z
			p = beta*float64(q) + (1-beta)*p
			q = 1
		} else {
			q++
		}
	}

	next := (1 - beta/2) * (z / p)

	// Poisson-variance approximation for the band: stddev = sqrt(mean).
	stddev := math.Sqrt(next)
	lower := math.Max(0, next-zScore90*stddev)
	upper := next + zScore90*stddev

	return domain.ForecastResult{
		Quantity:     round2(next),
		LowerBound:   round2(lower),
		UpperBound:   round2(upper),
		Algorithm:    domain.AlgorithmIntermittent,
		MASE:         MASE(series[sbaWarmup:], fitted[sbaWarmup:]),
		ModelVersion: ModelVersion,
	}
}
