package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparecast/sparecast/internal/config"
	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/repository"
)

type fakeItems struct {
	items  []domain.ItemAttributes
	onHand map[string]int
}

func (f *fakeItems) Items(ctx context.Context) ([]domain.ItemAttributes, error) {
	return f.items, nil
}

func (f *fakeItems) OnHand(ctx context.Context) (map[string]int, error) {
	return f.onHand, nil
}

type fakeConsumption struct {
	records []domain.MonthlyConsumption
}

func (f *fakeConsumption) MonthlyConsumption(ctx context.Context, fromMonth string) ([]domain.MonthlyConsumption, error) {
	return f.records, nil
}

type fakeResults struct {
	repository.ResultStore

	overrides map[string]repository.TierOverride
	saveErr   error

	savedForecasts       []domain.ForecastResult
	savedClassifications []domain.ClassificationResult
	savedSuggestions     []domain.ReorderSuggestion
	saveCalls            int
}

func (f *fakeResults) SaveRunResults(ctx context.Context,
	forecasts []domain.ForecastResult,
	classifications []domain.ClassificationResult,
	suggestions []domain.ReorderSuggestion) error {

	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedForecasts = forecasts
	f.savedClassifications = classifications
	f.savedSuggestions = suggestions
	return nil
}

func (f *fakeResults) TierOverrides(ctx context.Context) (map[string]repository.TierOverride, error) {
	if f.overrides == nil {
		return map[string]repository.TierOverride{}, nil
	}
	return f.overrides, nil
}

type fakeRuns struct {
	runs map[string]*domain.EngineRun
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: make(map[string]*domain.EngineRun)}
}

func (f *fakeRuns) Create(ctx context.Context, run *domain.EngineRun) error {
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRuns) Update(ctx context.Context, run *domain.EngineRun) error {
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRuns) Get(ctx context.Context, id string) (*domain.EngineRun, error) {
	return f.runs[id], nil
}

func (f *fakeRuns) Recent(ctx context.Context, limit int) ([]domain.EngineRun, error) {
	out := make([]domain.EngineRun, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out, nil
}

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		WindowMonths:        12,
		MinDataPoints:       3,
		ADIThreshold:        1.32,
		CV2Threshold:        0.49,
		Alpha:               0.15,
		Beta:                0.10,
		WorkingDaysPerMonth: 22.0,
		DefaultLeadTimeDays: 30,
		WorkerCount:         4,
	}
}

// monthlyDemand spreads quantities over the trailing window ending at period.
func monthlyDemand(period, itemCode string, quantities []int) []domain.MonthlyConsumption {
	end, _ := time.Parse(monthFormat, period)
	months := TrailingMonths(end, len(quantities))

	var records []domain.MonthlyConsumption
	for i, qty := range quantities {
		if qty == 0 {
			continue
		}
		records = append(records, domain.MonthlyConsumption{
			ItemCode: itemCode,
			Month:    months[i],
			Quantity: qty,
		})
	}
	return records
}

func classificationFor(t *testing.T, results []domain.ClassificationResult, code string) domain.ClassificationResult {
	t.Helper()
	for _, c := range results {
		if c.ItemCode == code {
			return c
		}
	}
	t.Fatalf("no classification for %s", code)
	return domain.ClassificationResult{}
}

func TestEngineExecute(t *testing.T) {
	const period = "2026-06"

	items := &fakeItems{
		items: []domain.ItemAttributes{
			{Code: "PMP-001", Name: "Pump seal", UnitPrice: decimal.NewFromInt(500),
				Criticality: domain.CriticalityHigh, LeadTimeDays: 45, SubstitutionDifficulty: 5},
			{Code: "BRG-002", Name: "Bearing", UnitPrice: decimal.NewFromInt(50),
				Criticality: domain.CriticalityMedium, LeadTimeDays: 20, SubstitutionDifficulty: 3},
			{Code: "FLT-003", Name: "Filter", UnitPrice: decimal.NewFromInt(10),
				Criticality: domain.CriticalityLow, LeadTimeDays: 10, SubstitutionDifficulty: 1},
			{Code: "GSK-004", Name: "Gasket", UnitPrice: decimal.NewFromInt(5),
				Criticality: domain.CriticalityLow, LeadTimeDays: 5, SubstitutionDifficulty: 2},
			{Code: "VLV-005", Name: "Valve", UnitPrice: decimal.NewFromInt(80),
				Criticality: domain.CriticalityMedium, LeadTimeDays: 30, SubstitutionDifficulty: 3},
		},
		onHand: map[string]int{
			"PMP-001": 0, // at or below reorder point
			"BRG-002": 500,
			"FLT-003": 2, // below safety stock
			"GSK-004": 3,
			"VLV-005": 100,
		},
	}

	var records []domain.MonthlyConsumption
	// Steady high-value demand every month.
	records = append(records, monthlyDemand(period, "PMP-001", []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10})...)
	// Steady mid-value demand.
	records = append(records, monthlyDemand(period, "BRG-002", []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5})...)
	// Intermittent and erratic.
	records = append(records, monthlyDemand(period, "FLT-003", []int{1, 0, 0, 1, 0, 0, 1, 0, 0, 40, 0, 0})...)
	// GSK-004: no demand at all.
	// Only two months of demand: below the minimum data points.
	records = append(records, monthlyDemand(period, "VLV-005", []int{0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 4, 0})...)

	results := &fakeResults{}
	runs := newFakeRuns()
	eng := New(Deps{
		Items:       items,
		Consumption: &fakeConsumption{records: records},
		Ledger:      items,
		Results:     results,
		Runs:        runs,
	}, testConfig())

	run := &domain.EngineRun{ID: "run-1", Period: period, Status: domain.RunPending, StartedAt: time.Now().UTC()}
	require.NoError(t, eng.Execute(context.Background(), run))

	t.Run("run accounting", func(t *testing.T) {
		assert.Equal(t, domain.RunCompleted, run.Status)
		assert.Equal(t, 5, run.TotalItems)
		assert.Equal(t, 2, run.FallbackUsed) // GSK-004 and VLV-005
		assert.NotNil(t, run.CompletedAt)
		assert.Equal(t, 1, results.saveCalls)
	})

	t.Run("abc ranking follows composite score", func(t *testing.T) {
		require.Len(t, results.savedClassifications, 5)

		pmp := classificationFor(t, results.savedClassifications, "PMP-001")
		assert.Equal(t, domain.ClassA, pmp.ABCClass)
		assert.Equal(t, domain.ClassX, pmp.XYZClass)
		assert.Equal(t, "AX", pmp.TierCode)
		assert.Equal(t, 100.0, pmp.CompositeScore)

		brg := classificationFor(t, results.savedClassifications, "BRG-002")
		assert.Equal(t, domain.ClassB, brg.ABCClass)

		flt := classificationFor(t, results.savedClassifications, "FLT-003")
		assert.Equal(t, domain.ClassC, flt.ABCClass)
	})

	t.Run("dead item stores zero variability and tier Z", func(t *testing.T) {
		gsk := classificationFor(t, results.savedClassifications, "GSK-004")
		assert.Equal(t, domain.ClassZ, gsk.XYZClass)
		assert.Zero(t, gsk.CV2)
		assert.Zero(t, gsk.SafetyStock)
		assert.Zero(t, gsk.ReorderPoint)
	})

	t.Run("forecasts target the month after the period", func(t *testing.T) {
		require.Len(t, results.savedForecasts, 5)
		for _, fc := range results.savedForecasts {
			assert.Equal(t, "2026-07", fc.ForecastMonth)
			assert.NotEmpty(t, fc.ItemCode)
			assert.LessOrEqual(t, fc.LowerBound, fc.UpperBound)
		}
	})

	t.Run("algorithm routing per item", func(t *testing.T) {
		algos := make(map[string]domain.Algorithm)
		for _, fc := range results.savedForecasts {
			algos[fc.ItemCode] = fc.Algorithm
		}
		assert.Equal(t, domain.AlgorithmRegression, algos["PMP-001"])
		assert.Equal(t, domain.AlgorithmRegression, algos["BRG-002"])
		assert.Equal(t, domain.AlgorithmIntermittent, algos["FLT-003"])
		assert.Equal(t, domain.AlgorithmFallback, algos["GSK-004"])
		assert.Equal(t, domain.AlgorithmFallback, algos["VLV-005"])
	})

	t.Run("reorder suggestions and urgency", func(t *testing.T) {
		byItem := make(map[string]domain.ReorderSuggestion)
		for _, sg := range results.savedSuggestions {
			byItem[sg.ItemCode] = sg
		}

		pmp, ok := byItem["PMP-001"]
		require.True(t, ok, "PMP-001 at zero stock must be suggested")
		assert.Equal(t, domain.UrgencyNormal, pmp.Urgency)
		assert.Equal(t, domain.ReorderStatusOpen, pmp.Status)

		flt, ok := byItem["FLT-003"]
		require.True(t, ok, "FLT-003 below safety stock must be suggested")
		assert.Equal(t, domain.UrgencyUrgent, flt.Urgency)

		_, ok = byItem["BRG-002"]
		assert.False(t, ok, "well stocked item must not be suggested")
	})
}

func TestEngineTieBreakByItemCode(t *testing.T) {
	const period = "2026-06"

	// Ten identical items: equal composite scores everywhere, so ranks come
	// from the item code ordering alone.
	var attrs []domain.ItemAttributes
	var records []domain.MonthlyConsumption
	codes := []string{"P-01", "P-02", "P-03", "P-04", "P-05", "P-06", "P-07", "P-08", "P-09", "P-10"}
	for _, code := range codes {
		attrs = append(attrs, domain.ItemAttributes{
			Code: code, Name: code, UnitPrice: decimal.NewFromInt(10),
			Criticality: domain.CriticalityMedium, LeadTimeDays: 20, SubstitutionDifficulty: 3,
		})
		records = append(records, monthlyDemand(period, code, []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5})...)
	}

	items := &fakeItems{items: attrs, onHand: map[string]int{}}
	results := &fakeResults{}
	eng := New(Deps{
		Items:       items,
		Consumption: &fakeConsumption{records: records},
		Ledger:      items,
		Results:     results,
		Runs:        newFakeRuns(),
	}, testConfig())

	run := &domain.EngineRun{ID: "run-tie", Period: period, Status: domain.RunPending, StartedAt: time.Now().UTC()}
	require.NoError(t, eng.Execute(context.Background(), run))

	want := map[string]domain.ABCClass{
		"P-01": domain.ClassA, "P-02": domain.ClassA,
		"P-03": domain.ClassB, "P-04": domain.ClassB, "P-05": domain.ClassB,
		"P-06": domain.ClassC, "P-07": domain.ClassC, "P-08": domain.ClassC,
		"P-09": domain.ClassC, "P-10": domain.ClassC,
	}
	for code, abc := range want {
		got := classificationFor(t, results.savedClassifications, code)
		assert.Equal(t, abc, got.ABCClass, "item %s", code)
	}
}

func TestEngineOverrideLocksTier(t *testing.T) {
	const period = "2026-06"

	items := &fakeItems{
		items: []domain.ItemAttributes{
			{Code: "BRG-002", Name: "Bearing", UnitPrice: decimal.NewFromInt(50),
				Criticality: domain.CriticalityMedium, LeadTimeDays: 20, SubstitutionDifficulty: 3},
		},
		onHand: map[string]int{"BRG-002": 500},
	}
	records := monthlyDemand(period, "BRG-002", []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5})

	results := &fakeResults{
		overrides: map[string]repository.TierOverride{
			"BRG-002": {ABCClass: domain.ClassA, XYZClass: domain.ClassZ},
		},
	}
	eng := New(Deps{
		Items:       items,
		Consumption: &fakeConsumption{records: records},
		Ledger:      items,
		Results:     results,
		Runs:        newFakeRuns(),
	}, testConfig())

	run := &domain.EngineRun{ID: "run-ov", Period: period, Status: domain.RunPending, StartedAt: time.Now().UTC()}
	require.NoError(t, eng.Execute(context.Background(), run))

	got := classificationFor(t, results.savedClassifications, "BRG-002")
	// The computed tier would be AX (single item, stable demand); the
	// override pins AZ while the scores still refresh.
	assert.Equal(t, domain.ClassA, got.ABCClass)
	assert.Equal(t, domain.ClassZ, got.XYZClass)
	assert.Equal(t, "AZ", got.TierCode)
	assert.True(t, got.ManuallyAdjusted)
	assert.Positive(t, got.CompositeScore)
}

func TestEngineRunFailure(t *testing.T) {
	const period = "2026-06"

	items := &fakeItems{
		items: []domain.ItemAttributes{
			{Code: "PMP-001", UnitPrice: decimal.NewFromInt(1),
				Criticality: domain.CriticalityMedium, LeadTimeDays: 10, SubstitutionDifficulty: 3},
		},
		onHand: map[string]int{},
	}
	results := &fakeResults{saveErr: errors.New("disk full")}
	runs := newFakeRuns()
	eng := New(Deps{
		Items:       items,
		Consumption: &fakeConsumption{records: monthlyDemand(period, "PMP-001", []int{1, 1, 1, 1})},
		Ledger:      items,
		Results:     results,
		Runs:        runs,
	}, testConfig())

	run := &domain.EngineRun{ID: "run-fail", Period: period, Status: domain.RunPending, StartedAt: time.Now().UTC()}
	err := eng.Execute(context.Background(), run)
	require.Error(t, err)

	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "disk full")

	stored, _ := runs.Get(context.Background(), "run-fail")
	require.NotNil(t, stored)
	assert.Equal(t, domain.RunFailed, stored.Status)
}
