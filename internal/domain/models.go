package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyConsumption is one raw consumption record: how many units of an
// item were consumed in a calendar month ("2006-01" format).
type MonthlyConsumption struct {
	ItemCode string `json:"item_code" db:"item_code"`
	Month    string `json:"month" db:"month"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// DemandSeries is a fixed-length, zero-filled sequence of monthly demand
// quantities, oldest month first. The window length is decided before any
// calculation and every value is >= 0.
type DemandSeries []int

// NonzeroCount returns the number of months with demand.
func (s DemandSeries) NonzeroCount() int {
	n := 0
	for _, d := range s {
		if d > 0 {
			n++
		}
	}
	return n
}

// Sum returns the total demand over the window.
func (s DemandSeries) Sum() int {
	total := 0
	for _, d := range s {
		total += d
	}
	return total
}

// Criticality of the equipment an item serves.
type Criticality string

const (
	CriticalityHigh   Criticality = "HIGH"
	CriticalityMedium Criticality = "MEDIUM"
	CriticalityLow    Criticality = "LOW"
)

// ItemAttributes is the item-master view the engine consumes.
type ItemAttributes struct {
	Code                   string          `json:"code" db:"code"`
	Name                   string          `json:"name" db:"name"`
	UnitPrice              decimal.Decimal `json:"unit_price" db:"unit_price"`
	Criticality            Criticality     `json:"criticality" db:"criticality"`
	LeadTimeDays           int             `json:"lead_time_days" db:"lead_time_days"`
	SubstitutionDifficulty int             `json:"substitution_difficulty" db:"substitution_difficulty"`
}

// Algorithm identifies which forecasting strategy produced a result.
type Algorithm string

const (
	AlgorithmRegression   Algorithm = "REGRESSION"
	AlgorithmIntermittent Algorithm = "INTERMITTENT"
	AlgorithmFallback     Algorithm = "FALLBACK"
)

// Features are the derived demand characteristics used for algorithm
// routing. ADI and CV2 use math.MaxFloat64 as the "no demand" sentinel.
type Features struct {
	ADI       float64   `json:"adi"`
	CV2       float64   `json:"cv2"`
	Algorithm Algorithm `json:"algorithm"`
}

// ForecastResult is one item's forecast for one target month. Results are
// append-only: reruns for the same period insert new rows.
type ForecastResult struct {
	ID            int64     `json:"id" db:"id"`
	ItemCode      string    `json:"item_code" db:"item_code"`
	ForecastMonth string    `json:"forecast_month" db:"forecast_month"`
	Quantity      float64   `json:"quantity" db:"quantity"`
	LowerBound    float64   `json:"lower_bound" db:"lower_bound"`
	UpperBound    float64   `json:"upper_bound" db:"upper_bound"`
	Algorithm     Algorithm `json:"algorithm" db:"algorithm"`
	// MASE is nil when the accuracy score is not computable (fallback
	// forecasts, too-short histories, flat naive benchmark).
	MASE         *float64  `json:"mase" db:"mase"`
	ModelVersion string    `json:"model_version" db:"model_version"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

type XYZClass string

const (
	ClassX XYZClass = "X"
	ClassY XYZClass = "Y"
	ClassZ XYZClass = "Z"
)

// ClassificationResult is one item's ABC/XYZ outcome for one run period.
// Rows are append-only per (item, period) so trend history survives reruns.
type ClassificationResult struct {
	ID             int64           `json:"id" db:"id"`
	ItemCode       string          `json:"item_code" db:"item_code"`
	ItemName       string          `json:"item_name" db:"item_name"`
	Period         string          `json:"period" db:"period"`
	ABCClass       ABCClass        `json:"abc_class" db:"abc_class"`
	XYZClass       XYZClass        `json:"xyz_class" db:"xyz_class"`
	TierCode       string          `json:"tier_code" db:"tier_code"`
	CompositeScore float64         `json:"composite_score" db:"composite_score"`
	AnnualValue    decimal.Decimal `json:"annual_value" db:"annual_value"`

	AnnualValueScore float64 `json:"annual_value_score" db:"annual_value_score"`
	CriticalityScore float64 `json:"criticality_score" db:"criticality_score"`
	LeadTimeScore    float64 `json:"lead_time_score" db:"lead_time_score"`
	DifficultyScore  float64 `json:"difficulty_score" db:"difficulty_score"`

	CV2          float64 `json:"cv2" db:"cv2"`
	SafetyStock  int     `json:"safety_stock" db:"safety_stock"`
	ReorderPoint int     `json:"reorder_point" db:"reorder_point"`
	ServiceLevel float64 `json:"service_level" db:"service_level"`

	// ManuallyAdjusted locks the tier code against automatic recomputes;
	// reruns still refresh the numeric scores.
	ManuallyAdjusted bool      `json:"manually_adjusted" db:"manually_adjusted"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// AdjustmentStatus is the lifecycle state of a manual-override request.
type AdjustmentStatus string

const (
	AdjustmentPending  AdjustmentStatus = "PENDING"
	AdjustmentApproved AdjustmentStatus = "APPROVED"
	AdjustmentRejected AdjustmentStatus = "REJECTED"
)

// AdjustmentRecord is a proposed manual override of a classification tier
// code. Created PENDING; approved or rejected exactly once.
type AdjustmentRecord struct {
	ID           int64            `json:"id" db:"id"`
	ItemCode     string           `json:"item_code" db:"item_code"`
	OriginalTier string           `json:"original_tier" db:"original_tier"`
	ProposedTier string           `json:"proposed_tier" db:"proposed_tier"`
	Reason       string           `json:"reason" db:"reason"`
	Requester    string           `json:"requester" db:"requester"`
	Reviewer     string           `json:"reviewer" db:"reviewer"`
	Remark       string           `json:"remark" db:"remark"`
	Status       AdjustmentStatus `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// Urgency of a reorder suggestion.
type Urgency string

const (
	UrgencyUrgent Urgency = "URGENT"
	UrgencyNormal Urgency = "NORMAL"
)

// ReorderSuggestion is the replenishment signal handed to the purchase
// workflow when on-hand stock is at or below the reorder point.
type ReorderSuggestion struct {
	ID           int64     `json:"id" db:"id"`
	ItemCode     string    `json:"item_code" db:"item_code"`
	Period       string    `json:"period" db:"period"`
	CurrentStock int       `json:"current_stock" db:"current_stock"`
	ReorderPoint int       `json:"reorder_point" db:"reorder_point"`
	SuggestedQty int       `json:"suggested_qty" db:"suggested_qty"`
	ForecastQty  float64   `json:"forecast_qty" db:"forecast_qty"`
	LowerBound   float64   `json:"lower_bound" db:"lower_bound"`
	UpperBound   float64   `json:"upper_bound" db:"upper_bound"`
	Urgency      Urgency   `json:"urgency" db:"urgency"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ReorderStatusOpen is the initial state of a suggestion; the purchase
// workflow owns the rest of the lifecycle.
const ReorderStatusOpen = "OPEN"

// ClassificationFilter narrows classification queries.
type ClassificationFilter struct {
	ABCClass ABCClass `json:"abc_class"`
	XYZClass XYZClass `json:"xyz_class"`
	ItemCode string   `json:"item_code"`
	Period   string   `json:"period"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// ForecastFilter narrows forecast-result queries.
type ForecastFilter struct {
	ItemCode string `json:"item_code"`
	Month    string `json:"month"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}
