package classify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/feature"
)

func TestAnnualValue(t *testing.T) {
	series := domain.DemandSeries{3, 0, 7, 2}
	got := AnnualValue(series, decimal.NewFromFloat(2.5))
	assert.True(t, got.Equal(decimal.NewFromFloat(30)), "got %s", got)
}

func TestAnnualValueScore(t *testing.T) {
	max := decimal.NewFromInt(1000)

	assert.Equal(t, 100.0, AnnualValueScore(decimal.NewFromInt(1000), max))
	assert.Equal(t, 50.0, AnnualValueScore(decimal.NewFromInt(500), max))
	assert.Zero(t, AnnualValueScore(decimal.Zero, max))

	// A cohort where nothing was consumed scores everyone 0.
	assert.Zero(t, AnnualValueScore(decimal.NewFromInt(500), decimal.Zero))
}

func TestCriticalityScore(t *testing.T) {
	assert.Equal(t, 100.0, CriticalityScore(domain.CriticalityHigh))
	assert.Equal(t, 50.0, CriticalityScore(domain.CriticalityMedium))
	assert.Equal(t, 10.0, CriticalityScore(domain.CriticalityLow))
	// Unknown values count as MEDIUM.
	assert.Equal(t, 50.0, CriticalityScore(domain.Criticality("")))
	assert.Equal(t, 50.0, CriticalityScore(domain.Criticality("SEVERE")))
}

func TestDifficultyScore(t *testing.T) {
	cases := []struct {
		difficulty int
		want       float64
	}{
		{1, 0},
		{2, 25},
		{3, 50},
		{4, 75},
		{5, 100},
		{0, 50}, // missing: defaults to 3
		{9, 50}, // out of range: defaults to 3
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DifficultyScore(c.difficulty), "difficulty %d", c.difficulty)
	}
}

func TestCompositeScore(t *testing.T) {
	assert.Equal(t, 100.0, CompositeScore(100, 100, 100, 100))
	assert.Zero(t, CompositeScore(0, 0, 0, 0))

	// 0.4*100 + 0.3*50 + 0.2*60 + 0.1*50 = 72
	assert.Equal(t, 72.0, CompositeScore(100, 50, 60, 50))

	// Rounded to two decimals.
	assert.Equal(t, 33.33, CompositeScore(33.333, 33.333, 33.333, 33.333))
}

func TestAssignABC(t *testing.T) {
	// 10 items: ranks 1-2 are the top 20%, 3-5 the next 30%, the rest C.
	want := []domain.ABCClass{
		domain.ClassA, domain.ClassA,
		domain.ClassB, domain.ClassB, domain.ClassB,
		domain.ClassC, domain.ClassC, domain.ClassC, domain.ClassC, domain.ClassC,
	}
	for rank := 1; rank <= 10; rank++ {
		assert.Equal(t, want[rank-1], AssignABC(10, rank), "rank %d", rank)
	}

	t.Run("single item is A", func(t *testing.T) {
		assert.Equal(t, domain.ClassA, AssignABC(1, 1))
	})

	t.Run("degenerate input is C", func(t *testing.T) {
		assert.Equal(t, domain.ClassC, AssignABC(0, 1))
		assert.Equal(t, domain.ClassC, AssignABC(10, 0))
	})
}

func TestDemandCV2(t *testing.T) {
	t.Run("no demand is the infinite sentinel", func(t *testing.T) {
		assert.Equal(t, feature.Infinite, DemandCV2(domain.DemandSeries{}))
		assert.Equal(t, feature.Infinite, DemandCV2(make(domain.DemandSeries, 12)))
	})

	t.Run("constant demand has zero variability", func(t *testing.T) {
		assert.Zero(t, DemandCV2(domain.DemandSeries{4, 4, 4, 4}))
	})

	t.Run("zero months count toward variability", func(t *testing.T) {
		// [0,0,0,12]: mean 3, variance 27, cv² = 3. The routing CV² over
		// nonzero months alone would be 0 here.
		assert.InDelta(t, 3.0, DemandCV2(domain.DemandSeries{0, 0, 0, 12}), 1e-12)
		assert.Zero(t, feature.CV2(domain.DemandSeries{0, 0, 0, 12}))
	})
}

func TestAssignXYZ(t *testing.T) {
	t.Run("sparse history is always Z", func(t *testing.T) {
		assert.Equal(t, domain.ClassZ, AssignXYZ(0.0, 2))
		assert.Equal(t, domain.ClassZ, AssignXYZ(0.1, 0))
	})

	cases := []struct {
		cv2  float64
		want domain.XYZClass
	}{
		{0.0, domain.ClassX},
		{0.3, domain.ClassX},
		{0.5, domain.ClassY},
		{0.7, domain.ClassY},
		{1.0, domain.ClassZ},
		{1.5, domain.ClassZ},
		{feature.Infinite, domain.ClassZ},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AssignXYZ(c.cv2, 6), "cv2 %v", c.cv2)
	}
}

func TestMonthlyStdDev(t *testing.T) {
	assert.Zero(t, MonthlyStdDev(domain.DemandSeries{}))
	assert.Zero(t, MonthlyStdDev(domain.DemandSeries{5, 5, 5}))
	// [2,4,4,4,5,5,7,9]: the textbook population stddev 2 example.
	assert.InDelta(t, 2.0, MonthlyStdDev(domain.DemandSeries{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}
