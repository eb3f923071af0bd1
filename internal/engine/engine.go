// Package engine orchestrates one classification-and-forecasting run:
// load history and item master, extract features, forecast per item,
// score and rank the cohort, compute safety stock and reorder points, and
// persist the whole result set in one write.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sparecast/sparecast/internal/classify"
	"github.com/sparecast/sparecast/internal/config"
	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/feature"
	"github.com/sparecast/sparecast/internal/forecast"
	"github.com/sparecast/sparecast/internal/repository"
)

// Exporter uploads a completed run's result snapshot. Export failures never
// fail the run.
type Exporter interface {
	ExportRun(ctx context.Context, run *domain.EngineRun, results []domain.ClassificationResult) error
}

// Deps are the collaborators one engine instance works against.
type Deps struct {
	Items       repository.ItemSource
	Consumption repository.ConsumptionSource
	Ledger      repository.StockLedger
	Results     repository.ResultStore
	Runs        repository.RunStore
	Exporter    Exporter
}

type Engine struct {
	deps Deps
	cfg  config.EngineConfig

	featureCfg  feature.Config
	forecastCfg forecast.Config
	calc        classify.Calculator
}

func New(deps Deps, cfg config.EngineConfig) *Engine {
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 12
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}

	featureCfg := feature.DefaultConfig()
	if cfg.MinDataPoints > 0 {
		featureCfg.MinDataPoints = cfg.MinDataPoints
	}
	if cfg.ADIThreshold > 0 {
		featureCfg.ADIThreshold = cfg.ADIThreshold
	}
	if cfg.CV2Threshold > 0 {
		featureCfg.CV2Threshold = cfg.CV2Threshold
	}

	forecastCfg := forecast.DefaultConfig()
	forecastCfg.MinDataPoints = featureCfg.MinDataPoints
	if cfg.Alpha > 0 {
		forecastCfg.Alpha = cfg.Alpha
	}
	if cfg.Beta > 0 {
		forecastCfg.Beta = cfg.Beta
	}

	calc := classify.NewCalculator()
	if cfg.WorkingDaysPerMonth > 0 {
		calc.WorkingDaysPerMonth = cfg.WorkingDaysPerMonth
	}
	if cfg.DefaultLeadTimeDays > 0 {
		calc.DefaultLeadTimeDays = cfg.DefaultLeadTimeDays
	}

	return &Engine{
		deps:        deps,
		cfg:         cfg,
		featureCfg:  featureCfg,
		forecastCfg: forecastCfg,
		calc:        calc,
	}
}

// Start creates a run for the current period and executes it on a
// background goroutine, returning immediately. Callers poll the run status.
func (e *Engine) Start(ctx context.Context) (*domain.EngineRun, error) {
	run := &domain.EngineRun{
		ID:        uuid.NewString(),
		Period:    time.Now().UTC().Format(monthFormat),
		Status:    domain.RunPending,
		StartedAt: time.Now().UTC(),
	}
	if err := e.deps.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	// The run outlives the trigger request; there is no mid-run
	// cancellation.
	go func() {
		if err := e.Execute(context.Background(), run); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("engine run failed")
		}
	}()

	return run, nil
}

// RunOnce creates and executes a run synchronously (CLI and scheduler
// entry point).
func (e *Engine) RunOnce(ctx context.Context) (*domain.EngineRun, error) {
	run := &domain.EngineRun{
		ID:        uuid.NewString(),
		Period:    time.Now().UTC().Format(monthFormat),
		Status:    domain.RunPending,
		StartedAt: time.Now().UTC(),
	}
	if err := e.deps.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, e.Execute(ctx, run)
}

// Execute runs the full pipeline for an existing run record. Results are
// persisted in a single bulk write; any failure marks the whole run failed
// with nothing visible, and the run is safe to retry.
func (e *Engine) Execute(ctx context.Context, run *domain.EngineRun) error {
	run.Status = domain.RunRunning
	if err := e.deps.Runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	out, err := e.compute(ctx, run.Period)
	if err == nil && len(out.classifications) > 0 {
		err = e.deps.Results.SaveRunResults(ctx, out.forecasts, out.classifications, out.suggestions)
		if err != nil {
			err = fmt.Errorf("persist run results: %w", err)
		}
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	if err != nil {
		run.Status = domain.RunFailed
		run.ErrorMessage = err.Error()
		if uerr := e.deps.Runs.Update(ctx, run); uerr != nil {
			log.Error().Err(uerr).Str("run_id", run.ID).Msg("failed to record run failure")
		}
		return err
	}

	run.Status = domain.RunCompleted
	run.TotalItems = len(out.classifications)
	run.FallbackUsed = out.fallbackUsed
	run.Suggestions = len(out.suggestions)
	if uerr := e.deps.Runs.Update(ctx, run); uerr != nil {
		return fmt.Errorf("complete run: %w", uerr)
	}

	log.Info().
		Str("run_id", run.ID).
		Str("period", run.Period).
		Int("items", run.TotalItems).
		Int("fallback", run.FallbackUsed).
		Int("suggestions", run.Suggestions).
		Msg("engine run completed")

	if e.deps.Exporter != nil && len(out.classifications) > 0 {
		if xerr := e.deps.Exporter.ExportRun(ctx, run, out.classifications); xerr != nil {
			log.Warn().Err(xerr).Str("run_id", run.ID).Msg("run export failed")
		}
	}

	return nil
}

// itemResult carries the per-item stage outputs into the cohort stage.
type itemResult struct {
	attrs    domain.ItemAttributes
	series   domain.DemandSeries
	features domain.Features
	forecast domain.ForecastResult

	annualValue decimal.Decimal
	demandCV2   float64
	stdDev      float64
	avgMonthly  float64

	composite       float64
	annualScore     float64
	critScore       float64
	leadScore       float64
	difficultyScore float64
}

type runOutput struct {
	forecasts       []domain.ForecastResult
	classifications []domain.ClassificationResult
	suggestions     []domain.ReorderSuggestion
	fallbackUsed    int
}

func (e *Engine) compute(ctx context.Context, period string) (*runOutput, error) {
	items, err := e.deps.Items.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("load item master: %w", err)
	}
	if len(items) == 0 {
		log.Warn().Msg("item master is empty, nothing to classify")
		return &runOutput{}, nil
	}

	end, err := time.Parse(monthFormat, period)
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: %w", period, err)
	}
	builder := NewHistoryBuilder(end, e.cfg.WindowMonths)

	records, err := e.deps.Consumption.MonthlyConsumption(ctx, builder.FromMonth())
	if err != nil {
		return nil, fmt.Errorf("load consumption history: %w", err)
	}
	seriesByItem := builder.Build(records)

	overrides, err := e.deps.Results.TierOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tier overrides: %w", err)
	}

	log.Info().
		Int("items", len(items)).
		Int("consumption_records", len(records)).
		Int("tier_overrides", len(overrides)).
		Str("period", period).
		Msg("engine inputs loaded")

	// Stage 1: per-item feature extraction, forecasting and value figures.
	// Items share no state here, so this stage fans out across workers.
	results := make([]itemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.WorkerCount)
	for i, attrs := range items {
		i, attrs := i, attrs
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.computeItem(attrs, builder.SeriesFor(seriesByItem, attrs.Code))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 2: cohort-wide ranking. This is the one full-collection
	// barrier: every composite score must exist before ranks are assigned.
	maxAnnual := decimal.Zero
	for i := range results {
		if results[i].annualValue.GreaterThan(maxAnnual) {
			maxAnnual = results[i].annualValue
		}
	}
	for i := range results {
		r := &results[i]
		r.annualScore = classify.AnnualValueScore(r.annualValue, maxAnnual)
		r.critScore = classify.CriticalityScore(r.attrs.Criticality)
		r.leadScore = e.calc.LeadTimeScore(r.attrs.LeadTimeDays)
		r.difficultyScore = classify.DifficultyScore(r.attrs.SubstitutionDifficulty)
		r.composite = classify.CompositeScore(r.annualScore, r.critScore, r.leadScore, r.difficultyScore)
	}

	// Rank by composite score descending; equal scores order by item code
	// so reruns over the same data rank identically.
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := results[order[a]], results[order[b]]
		if ra.composite != rb.composite {
			return ra.composite > rb.composite
		}
		return ra.attrs.Code < rb.attrs.Code
	})
	abcByItem := make(map[string]domain.ABCClass, len(results))
	for rank, idx := range order {
		abcByItem[results[idx].attrs.Code] = classify.AssignABC(len(results), rank+1)
	}

	return e.assemble(ctx, period, results, abcByItem, overrides)
}

// computeItem runs the pure per-item stage. A panic in a strategy is
// isolated to the item: it degrades to the fallback forecast instead of
// aborting the batch.
func (e *Engine) computeItem(attrs domain.ItemAttributes, series domain.DemandSeries) (res itemResult) {
	res = itemResult{
		attrs:       attrs,
		series:      series,
		annualValue: classify.AnnualValue(series, attrs.UnitPrice),
		demandCV2:   classify.DemandCV2(series),
		stdDev:      classify.MonthlyStdDev(series),
	}
	if len(series) > 0 {
		res.avgMonthly = float64(series.Sum()) / float64(len(series))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("item", attrs.Code).
				Msg("forecast panicked, degrading to fallback")
			res.features.Algorithm = domain.AlgorithmFallback
			res.forecast = forecast.New(domain.AlgorithmFallback, e.forecastCfg).Forecast(series)
		}
	}()

	res.features = feature.Extract(series, e.featureCfg)
	res.forecast = forecast.New(res.features.Algorithm, e.forecastCfg).Forecast(series)
	return res
}

// assemble turns the scored cohort into persistent rows and reorder
// suggestions.
func (e *Engine) assemble(ctx context.Context, period string, results []itemResult,
	abcByItem map[string]domain.ABCClass, overrides map[string]repository.TierOverride) (*runOutput, error) {

	onHand, err := e.deps.Ledger.OnHand(ctx)
	if err != nil {
		return nil, fmt.Errorf("load on-hand stock: %w", err)
	}

	forecastMonth := NextMonth(period)
	now := time.Now().UTC()
	out := &runOutput{
		forecasts:       make([]domain.ForecastResult, 0, len(results)),
		classifications: make([]domain.ClassificationResult, 0, len(results)),
	}

	for i := range results {
		r := &results[i]
		code := r.attrs.Code

		fc := r.forecast
		fc.ItemCode = code
		fc.ForecastMonth = forecastMonth
		fc.CreatedAt = now
		out.forecasts = append(out.forecasts, fc)
		if fc.Algorithm == domain.AlgorithmFallback {
			out.fallbackUsed++
		}

		abc := abcByItem[code]
		xyz := classify.AssignXYZ(r.demandCV2, r.series.NonzeroCount())

		cls := domain.ClassificationResult{
			ItemCode:         code,
			ItemName:         r.attrs.Name,
			Period:           period,
			ABCClass:         abc,
			XYZClass:         xyz,
			CompositeScore:   r.composite,
			AnnualValue:      r.annualValue.Round(2),
			AnnualValueScore: classify.Round(r.annualScore, 2),
			CriticalityScore: r.critScore,
			LeadTimeScore:    r.leadScore,
			DifficultyScore:  classify.Round(r.difficultyScore, 2),
			CreatedAt:        now,
		}

		// Store 0 instead of the infinite sentinel.
		if r.demandCV2 != feature.Infinite {
			cls.CV2 = classify.Round(r.demandCV2, 4)
		}

		// A manual override locks the tier code; the scores above still
		// refresh every run.
		if ov, locked := overrides[code]; locked {
			cls.ABCClass = ov.ABCClass
			cls.XYZClass = ov.XYZClass
			cls.ManuallyAdjusted = true
		}
		cls.TierCode = string(cls.ABCClass) + string(cls.XYZClass)

		// Safety stock and reorder point follow the effective tier.
		cls.SafetyStock = e.calc.SafetyStock(cls.ABCClass, r.stdDev, r.attrs.LeadTimeDays)
		cls.ReorderPoint = e.calc.ReorderPoint(r.avgMonthly, r.attrs.LeadTimeDays, cls.SafetyStock)
		cls.ServiceLevel = classify.ServiceLevel(cls.ABCClass)

		out.classifications = append(out.classifications, cls)

		stock := onHand[code]
		if stock <= cls.ReorderPoint {
			urgency := domain.UrgencyNormal
			if stock < cls.SafetyStock {
				urgency = domain.UrgencyUrgent
			}
			out.suggestions = append(out.suggestions, domain.ReorderSuggestion{
				ItemCode:     code,
				Period:       period,
				CurrentStock: stock,
				ReorderPoint: cls.ReorderPoint,
				SuggestedQty: int(math.Round(fc.Quantity)),
				ForecastQty:  fc.Quantity,
				LowerBound:   fc.LowerBound,
				UpperBound:   fc.UpperBound,
				Urgency:      urgency,
				Status:       domain.ReorderStatusOpen,
				CreatedAt:    now,
			})
		}
	}

	return out, nil
}
