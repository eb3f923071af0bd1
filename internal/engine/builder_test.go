package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparecast/sparecast/internal/domain"
)

func TestTrailingMonths(t *testing.T) {
	end := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

	months := TrailingMonths(end, 4)
	assert.Equal(t, []string{"2025-12", "2026-01", "2026-02", "2026-03"}, months)
}

func TestNextMonth(t *testing.T) {
	assert.Equal(t, "2026-04", NextMonth("2026-03"))
	assert.Equal(t, "2027-01", NextMonth("2026-12"))
	// An unparseable period passes through unchanged.
	assert.Equal(t, "not-a-month", NextMonth("not-a-month"))
}

func TestHistoryBuilder(t *testing.T) {
	end := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	b := NewHistoryBuilder(end, 6)

	require.Equal(t, "2026-01", b.FromMonth())
	require.Len(t, b.Months(), 6)

	records := []domain.MonthlyConsumption{
		{ItemCode: "P-100", Month: "2026-01", Quantity: 4},
		{ItemCode: "P-100", Month: "2026-03", Quantity: 2},
		{ItemCode: "P-100", Month: "2026-03", Quantity: 3}, // duplicate month accumulates
		{ItemCode: "P-100", Month: "2025-11", Quantity: 99}, // outside window, dropped
		{ItemCode: "P-100", Month: "2026-05", Quantity: -7}, // non-positive, dropped
		{ItemCode: "P-200", Month: "2026-06", Quantity: 1},
	}
	series := b.Build(records)

	assert.Equal(t, domain.DemandSeries{4, 0, 5, 0, 0, 0}, b.SeriesFor(series, "P-100"))
	assert.Equal(t, domain.DemandSeries{0, 0, 0, 0, 0, 1}, b.SeriesFor(series, "P-200"))

	t.Run("unknown item gets an all-zero series of window length", func(t *testing.T) {
		s := b.SeriesFor(series, "P-999")
		assert.Len(t, s, 6)
		assert.Zero(t, s.Sum())
	})
}
