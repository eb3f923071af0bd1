package forecast

import "github.com/sparecast/sparecast/internal/domain"

// FallbackForecaster is the safe default for items without enough history
// for either model. It never fails and always returns a usable, lower
// confidence result.
type FallbackForecaster struct{}

func (f *FallbackForecaster) Forecast(series domain.DemandSeries) domain.ForecastResult {
	return fallbackResult(series)
}
