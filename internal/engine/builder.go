package engine

import (
	"time"

	"github.com/sparecast/sparecast/internal/domain"
)

// monthFormat is the canonical period key.
const monthFormat = "2006-01"

// TrailingMonths returns the window of n months ending at (and including)
// end's month, oldest first.
func TrailingMonths(end time.Time, n int) []string {
	months := make([]string, 0, n)
	first := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		months = append(months, first.AddDate(0, -i, 0).Format(monthFormat))
	}
	return months
}

// NextMonth returns the month after a "2006-01" period.
func NextMonth(period string) string {
	t, err := time.Parse(monthFormat, period)
	if err != nil {
		return period
	}
	return t.AddDate(0, 1, 0).Format(monthFormat)
}

// HistoryBuilder normalizes raw consumption records into fixed-length,
// zero-filled demand series over a known month window.
type HistoryBuilder struct {
	months []string
	index  map[string]int
}

// NewHistoryBuilder creates a builder for the window of `window` months
// ending at end's month.
func NewHistoryBuilder(end time.Time, window int) *HistoryBuilder {
	months := TrailingMonths(end, window)
	index := make(map[string]int, len(months))
	for i, m := range months {
		index[m] = i
	}
	return &HistoryBuilder{months: months, index: index}
}

// Months returns the window, oldest first.
func (b *HistoryBuilder) Months() []string {
	return b.months
}

// FromMonth returns the oldest month of the window.
func (b *HistoryBuilder) FromMonth() string {
	return b.months[0]
}

// Build groups records by item into zero-filled series. Records outside the
// window and non-positive quantities are dropped; duplicate (item, month)
// records accumulate.
func (b *HistoryBuilder) Build(records []domain.MonthlyConsumption) map[string]domain.DemandSeries {
	series := make(map[string]domain.DemandSeries)
	for _, rec := range records {
		idx, ok := b.index[rec.Month]
		if !ok || rec.Quantity <= 0 {
			continue
		}
		s, ok := series[rec.ItemCode]
		if !ok {
			s = make(domain.DemandSeries, len(b.months))
			series[rec.ItemCode] = s
		}
		s[idx] += rec.Quantity
	}
	return series
}

// SeriesFor returns the item's series, or an all-zero series when the item
// has no consumption records in the window.
func (b *HistoryBuilder) SeriesFor(series map[string]domain.DemandSeries, itemCode string) domain.DemandSeries {
	if s, ok := series[itemCode]; ok {
		return s
	}
	return make(domain.DemandSeries, len(b.months))
}
