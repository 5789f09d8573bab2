package usecase

import "github.com/shopspring/decimal"

const DefaultPricePrecision int32 = 7

// TruncatePrice drops digits past the given number of decimal places.
// It never rounds, so the result is never more aggressive than the input.
func TruncatePrice(price decimal.Decimal, places int32) decimal.Decimal {
	if places < 0 {
		places = 0
	}
	return price.Truncate(places)
}
