// Package repository defines the narrow persistence surfaces the engine
// collaborates with: read-only sources for consumption history, item master
// data and on-hand stock, and append-only sinks for run results.
package repository

import (
	"context"

	"github.com/sparecast/sparecast/internal/domain"
)

// ConsumptionSource provides monthly consumption history per item.
type ConsumptionSource interface {
	// MonthlyConsumption returns all per-item monthly quantities from
	// fromMonth ("2006-01") onward.
	MonthlyConsumption(ctx context.Context, fromMonth string) ([]domain.MonthlyConsumption, error)
}

// ItemSource provides the item-master attributes the engine scores on.
type ItemSource interface {
	Items(ctx context.Context) ([]domain.ItemAttributes, error)
}

// StockLedger provides current on-hand quantities, keyed by item code.
// Items absent from the map count as zero stock.
type StockLedger interface {
	OnHand(ctx context.Context) (map[string]int, error)
}

// TierOverride is a manually locked tier for one item.
type TierOverride struct {
	ABCClass domain.ABCClass
	XYZClass domain.XYZClass
}

// ResultStore persists and queries run output. Result rows are append-only
// time series keyed by (item, period); a rerun appends a fresh result set
// and readers select the latest period.
type ResultStore interface {
	// SaveRunResults writes one run's full output in a single transaction.
	// A failure leaves nothing visible; the whole run is retried.
	SaveRunResults(ctx context.Context,
		forecasts []domain.ForecastResult,
		classifications []domain.ClassificationResult,
		suggestions []domain.ReorderSuggestion) error

	// TierOverrides returns the manually adjusted tiers currently in
	// force, so automatic recomputes refresh scores without touching them.
	TierOverrides(ctx context.Context) (map[string]TierOverride, error)

	LatestClassifications(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, error)
	ClassificationHistory(ctx context.Context, itemCode string) ([]domain.ClassificationResult, error)
	LatestClassification(ctx context.Context, itemCode string) (*domain.ClassificationResult, error)
	// Matrix returns the ABC×XYZ cell counts for the latest period.
	Matrix(ctx context.Context) (map[string]int, error)

	// ApplyTierOverride rewrites the live classification's tier and sets
	// the manually-adjusted flag. Used by approved adjustments.
	ApplyTierOverride(ctx context.Context, itemCode, tierCode string) error

	Forecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.ForecastResult, int, error)
	ForecastHistory(ctx context.Context, itemCode string) ([]domain.ForecastResult, error)

	Suggestions(ctx context.Context, period string) ([]domain.ReorderSuggestion, error)
}

// AdjustmentStore persists manual-override requests and decisions.
type AdjustmentStore interface {
	Create(ctx context.Context, rec *domain.AdjustmentRecord) error
	Get(ctx context.Context, id int64) (*domain.AdjustmentRecord, error)
	// UpdateDecision records the reviewer's approve/reject outcome.
	UpdateDecision(ctx context.Context, rec *domain.AdjustmentRecord) error
	List(ctx context.Context, status domain.AdjustmentStatus) ([]domain.AdjustmentRecord, error)
}

// RunStore tracks engine runs for async status polling.
type RunStore interface {
	Create(ctx context.Context, run *domain.EngineRun) error
	Update(ctx context.Context, run *domain.EngineRun) error
	Get(ctx context.Context, id string) (*domain.EngineRun, error)
	Recent(ctx context.Context, limit int) ([]domain.EngineRun, error)
}
