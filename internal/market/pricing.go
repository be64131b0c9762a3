package market

import "math"

// Range is a half-open interval [Min, Max) of discount fractions.
type Range struct {
	Min float64
	Max float64
}

// OriginalPrice is the catalog price after inflation, rounded to the nearest unit.
func OriginalPrice(base int64, inflation float64) int64 {
	return int64(math.Round(float64(base) * inflation))
}

// ApplyDiscounts computes base × inflation × Π(1 − d), rounded to the nearest
// unit. The result never exceeds OriginalPrice and is at least 1 when the
// original price is positive.
func ApplyDiscounts(base int64, inflation float64, discounts ...float64) int64 {
	original := OriginalPrice(base, inflation)
	v := float64(base) * inflation
	for _, d := range discounts {
		v *= 1 - d
	}
	price := int64(math.Round(v))
	if price > original {
		price = original
	}
	if original > 0 && price < 1 {
		price = 1
	}
	if price < 0 {
		price = 0
	}
	return price
}
