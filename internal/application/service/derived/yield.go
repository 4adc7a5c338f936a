package derived

import "math"

// ComputeYield annualizes the discount between price and face value over
// the remaining days: (face/price)^(365/days) - 1. ok is false for
// non-positive price, days or face; such rows are excluded rather than
// uploaded with a bogus value.
func ComputeYield(price float64, days int, face float64) (float64, bool) {
	if price <= 0 || days <= 0 || face <= 0 {
		return 0, false
	}
	y := math.Pow(face/price, 365/float64(days)) - 1
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, false
	}
	return y, true
}
