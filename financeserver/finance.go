package financeserver

import (
	"strconv"
	"strings"
)

const (
	// InternationalFeeThreshold is the amount above which
	// an international transaction fee is possible
	InternationalFeeThreshold = 1000.0

	// FeeInternational is the description of a possible international fee
	FeeInternational = "Possible 3% international transaction fee"
	// FeeStandard is the description of a standard fee
	FeeStandard = "Standard transaction fee"
)

var exchangeRates = map[string]float64{
	"USD": 7.2,
	"EUR": 7.8,
}

// GetExchangeRate returns the exchange rate for the currency code,
// unknown codes return 1.0
func GetExchangeRate(currency string) float64 {
	if rate, ok := exchangeRates[strings.ToUpper(currency)]; ok {
		return rate
	}
	return 1.0
}

// GetFeeDescription returns the description of potential fees for the amount
func GetFeeDescription(amount float64) string {
	if amount > InternationalFeeThreshold {
		return FeeInternational
	}
	return FeeStandard
}

// FormatFloat returns the shortest representation of the value
// with at least one decimal digit: 7.2, 1.0
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}
	return s + ".0"
}
