package forecast

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/sparecast/sparecast/internal/domain"
)

// RegressionForecaster handles regular, non-intermittent demand with lagged
// features: the two most recent lag values and a trailing moving average
// predict the next month. The model is a small gradient-boosted ensemble of
// regression stumps, deterministic and kept simple to survive the tiny
// sample counts a 12-month window produces.
type RegressionForecaster struct {
	cfg Config
}

func (f *RegressionForecaster) Forecast(series domain.DemandSeries) domain.ForecastResult {
	if series.NonzeroCount() < f.cfg.MinDataPoints {
		return fallbackResult(series)
	}

	n := len(series)
	window := f.cfg.LagWindow
	if window <= 0 {
		window = 3
	}
	if n <= window {
		return fallbackResult(series)
	}

	// One training sample per month after the warm-up window:
	// inputs lag1, lag2, roll (trailing mean over the window), target the
	// actual value of that month.
	sampleCount := n - window
	features := make([][3]float64, sampleCount)
	targets := make([]float64, sampleCount)
	for i := window; i < n; i++ {
		idx := i - window
		features[idx] = lagFeatures(series, i, window)
		targets[idx] = float64(series[i])
	}

	model := fitBoostedStumps(features, targets)

	fitted := make([]float64, sampleCount)
	actuals := make([]int, sampleCount)
	var sse float64
	for i := range features {
		pred := model.predict(features[i])
		fitted[i] = math.Max(0, pred)
		actuals[i] = int(targets[i])
		sse += (targets[i] - pred) * (targets[i] - pred)
	}
	rmse := math.Sqrt(sse / float64(sampleCount))

	next := model.predict(lagFeatures(series, n, window))
	if math.IsNaN(next) || math.IsInf(next, 0) {
		// Degenerate fit; degrade rather than fail the item.
		log.Warn().Msg("regression forecast produced a non-finite value, using fallback")
		return fallbackResult(series)
	}
	next = math.Max(0, next)

	lower := math.Max(0, next-zScore90*rmse)
	upper := next + zScore90*rmse

	return domain.ForecastResult{
		Quantity:     round2(next),
		LowerBound:   round2(lower),
		UpperBound:   round2(upper),
		Algorithm:    domain.AlgorithmRegression,
		MASE:         MASE(actuals, fitted),
		ModelVersion: ModelVersion,
	}
}

// lagFeatures builds the input row predicting month i: the two previous
// values and the trailing mean over the window ending at i-1.
func lagFeatures(series domain.DemandSeries, i, window int) [3]float64 {
	var roll float64
	for k := i - window; k < i; k++ {
		roll += float64(series[k])
	}
	roll /= float64(window)

	return [3]float64{
		float64(series[i-1]),
		float64(series[i-2]),
		roll,
	}
}

const (
	boostRounds    = 50
	boostShrinkage = 0.1
)

type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
}

// boostedStumps is a least-squares gradient-boosting ensemble over
// depth-one regression trees. No randomness is involved: candidate splits
// are the midpoints between sorted distinct feature values, so the fit is
// fully deterministic for a given training set.
type boostedStumps struct {
	base   float64
	stumps []stump
}

func fitBoostedStumps(features [][3]float64, targets []float64) *boostedStumps {
	n := len(targets)

	var base float64
	for _, y := range targets {
		base += y
	}
	base /= float64(n)

	model := &boostedStumps{base: base}

	preds := make([]float64, n)
	for i := range preds {
		preds[i] = base
	}
	residuals := make([]float64, n)

	for round := 0; round < boostRounds; round++ {
		for i := range residuals {
			residuals[i] = targets[i] - preds[i]
		}

		best, ok := bestStump(features, residuals)
		if !ok {
			break
		}

		best.left *= boostShrinkage
		best.right *= boostShrinkage
		model.stumps = append(model.stumps, best)

		for i := range preds {
			if features[i][best.feature] <= best.threshold {
				preds[i] += best.left
			} else {
				preds[i] += best.right
			}
		}
	}

	return model
}

// bestStump scans every feature and every midpoint split for the stump
// minimizing the squared error against the residuals. Returns false when no
// feature has two distinct values left to split on.
func bestStump(features [][3]float64, residuals []float64) (stump, bool) {
	n := len(residuals)
	var best stump
	bestErr := math.Inf(1)
	found := false

	for f := 0; f < 3; f++ {
		values := make([]float64, 0, n)
		seen := make(map[float64]struct{}, n)
		for i := 0; i < n; i++ {
			v := features[i][f]
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				values = append(values, v)
			}
		}
		if len(values) < 2 {
			continue
		}
		sort.Float64s(values)

		for v := 0; v < len(values)-1; v++ {
			threshold := (values[v] + values[v+1]) / 2

			var sumL, sumR float64
			var nL, nR int
			for i := 0; i < n; i++ {
				if features[i][f] <= threshold {
					sumL += residuals[i]
					nL++
				} else {
					sumR += residuals[i]
					nR++
				}
			}
			if nL == 0 || nR == 0 {
				continue
			}
			meanL := sumL / float64(nL)
			meanR := sumR / float64(nR)

			var sse float64
			for i := 0; i < n; i++ {
				var d float64
				if features[i][f] <= threshold {
					d = residuals[i] - meanL
				} else {
					d = residuals[i] - meanR
				}
				sse += d * d
			}

			if sse < bestErr {
				bestErr = sse
				best = stump{feature: f, threshold: threshold, left: meanL, right: meanR}
				found = true
			}
		}
	}

	return best, found
}

func (m *boostedStumps) predict(x [3]float64) float64 {
	pred := m.base
	for _, s := range m.stumps {
		if x[s.feature] <= s.threshold {
			pred += s.left
		} else {
			pred += s.right
		}
	}
	return pred
}
