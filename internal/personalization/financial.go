package personalization

import (
	"fmt"
	"math"
	"strconv"
)

// FinancialImpactScaler rescales a baseline cost range for one client.
type FinancialImpactScaler struct{}

func NewFinancialImpactScaler() *FinancialImpactScaler {
	return &FinancialImpactScaler{}
}

// Scale multiplies both bounds by multiplier and max(1, affectedLocations),
// rounding half up to whole currency units.
func (FinancialImpactScaler) Scale(baseline CostImpact, segment Segment, multiplier float64, affectedLocations int) AdjustedCost {
	scale := affectedLocations
	if scale < 1 {
		scale = 1
	}

	plural := ""
	if scale > 1 {
		plural = "s"
	}

	return AdjustedCost{
		Low:  roundCurrency(baseline.Low * multiplier * float64(scale)),
		High: roundCurrency(baseline.High * multiplier * float64(scale)),
		Methodology: fmt.Sprintf("Adjusted for %s (%sx multiplier) across %d affected location%s",
			segment.Human(), formatMultiplier(multiplier), scale, plural),
	}
}

// roundCurrency saturates at math.MaxInt64 rather than wrapping negative.
func roundCurrency(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	r := math.Floor(v + 0.5)
	if r >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(r)
}

// formatMultiplier prints 2 as "2" and 1.25 as "1.25".
func formatMultiplier(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
