package forecast

import "math"

// MASE computes the Mean Absolute Scaled Error of the model's in-sample
// fitted values against the actual history, scaled by the naive lag-1
// benchmark. A value below 1 means the model beats the naive forecast.
//
// Returns nil when the score is not computable: fewer than 2 actual points,
// no fitted values, or a flat history where the naive benchmark error is
// exactly 0.
func MASE(actuals []int, fitted []float64) *float64 {
	if len(actuals) < 2 || len(fitted) < 1 {
		return nil
	}

	n := len(actuals)
	if len(fitted) < n {
		n = len(fitted)
	}

	var maeModel float64
	for i := 0; i < n; i++ {
		maeModel += math.Abs(float64(actuals[i]) - fitted[i])
	}
	maeModel /= float64(n)

	var maeNaive float64
	for i := 1; i < len(actuals); i++ {
		maeNaive += math.Abs(float64(actuals[i] - actuals[i-1]))
	}
	maeNaive /= float64(len(actuals) - 1)

	if maeNaive == 0 {
		return nil
	}

	mase := round4(maeModel / maeNaive)
	return &mase
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
