package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currencies Stripe charges without a minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// CurrencyExponent is the number of minor-unit digits for an ISO 4217 code.
func CurrencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -CurrencyExponent(currency))
}

// ToMinorUnits converts an amount to gateway minor units. ok is false when
// the amount carries more precision than the currency allows; amounts are
// never rounded to make them fit.
func ToMinorUnits(amount decimal.Decimal, currency string) (minor int64, ok bool) {
	scaled := amount.Shift(CurrencyExponent(currency))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, false
	}
	return scaled.IntPart(), true
}
