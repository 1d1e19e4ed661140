package types

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits kept for every monetary and
// token quantity.
const AmountScale = 6

// RoundAmount rounds d half-away-from-zero to AmountScale fractional digits.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// ParseAmount parses a decimal string and rounds it to AmountScale.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundAmount(d), nil
}
