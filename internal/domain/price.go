package domain

import "math"

// RoundPrice normalizes a price to 2 decimal places. Every committed
// price in the system passes through this exactly once, inside the
// price store, so history entries never carry extra precision.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// BankruptcySentinel is the terminal price recorded for a symbol at the
// moment it is delisted. It is never observable as a current price.
const BankruptcySentinel = 0.0
