package classify

import (
	"math"

	"github.com/sparecast/sparecast/internal/domain"
)

// Calculator holds the conversion conventions for the stock arithmetic.
// Monthly figures become daily ones by dividing by the working-day count.
type Calculator struct {
	WorkingDaysPerMonth float64
	DefaultLeadTimeDays int
}

// NewCalculator returns a Calculator with the standard conventions: 22
// working days per month, 30-day default lead time.
func NewCalculator() Calculator {
	return Calculator{
		WorkingDaysPerMonth: 22.0,
		DefaultLeadTimeDays: 30,
	}
}

// KFactor returns the one-sided normal service-level factor for an ABC
// tier: A ~99%, B ~95%, C ~90%.
func KFactor(abc domain.ABCClass) float64 {
	switch abc {
	case domain.ClassA:
		return 2.33
	case domain.ClassB:
		return 1.65
	default:
		return 1.28
	}
}

// ServiceLevel returns the target service level (%) implied by the tier's
// k-factor.
func ServiceLevel(abc domain.ABCClass) float64 {
	switch abc {
	case domain.ClassA:
		return 99.0
	case domain.ClassB:
		return 95.0
	default:
		return 90.0
	}
}

// LeadTimeScore maps procurement lead time (days) to a risk score: longer
// lead times score higher. A missing lead time (<= 0) counts as the
// default.
func (c Calculator) LeadTimeScore(leadTimeDays int) float64 {
	if leadTimeDays <= 0 {
		leadTimeDays = c.DefaultLeadTimeDays
	}
	switch {
	case leadTimeDays > 30:
		return 100
	case leadTimeDays >= 15:
		return 60
	default:
		return 20
	}
}

// SafetyStock computes SS = k * sigma_daily * sqrt(leadTime), where
// sigma_daily derives from the monthly demand standard deviation. The
// result rounds up and never goes below 0.
func (c Calculator) SafetyStock(abc domain.ABCClass, monthlyStdDev float64, leadTimeDays int) int {
	k := KFactor(abc)
	if leadTimeDays <= 0 {
		leadTimeDays = c.DefaultLeadTimeDays
	}
	dailyStdDev := monthlyStdDev / math.Sqrt(c.WorkingDaysPerMonth)
	ss := k * dailyStdDev * math.Sqrt(float64(leadTimeDays))
	return int(math.Ceil(math.Max(ss, 0)))
}

// ReorderPoint computes ROP = dailyAvgDemand * leadTime + SS, rounding up,
// floored at 0.
func (c Calculator) ReorderPoint(avgMonthlyQty float64, leadTimeDays, safetyStock int) int {
	if leadTimeDays <= 0 {
		leadTimeDays = c.DefaultLeadTimeDays
	}
	dailyAvg := avgMonthlyQty / c.WorkingDaysPerMonth
	rop := dailyAvg*float64(leadTimeDays) + float64(safetyStock)
	return int(math.Ceil(math.Max(rop, 0)))
}
