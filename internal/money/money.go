// Package money holds the decimal amount / currency pair used for every
// monetary field on an order. All constructors are total: malformed or
// missing input degrades to zero and the default currency instead of
// failing.
package money

import "github.com/shopspring/decimal"

// Money is a decimal amount together with a 3-letter currency code.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// New parses amount and currency, falling back to zero and defaultCurrency
// respectively.
func New(amount, currency, defaultCurrency string) Money {
	return Money{
		Amount:   ParseAmount(amount),
		Currency: ParseCurrency(currency, defaultCurrency),
	}
}

// ParseAmount parses a decimal string. Empty or malformed input yields zero,
// never an error.
func ParseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseCurrency returns the given currency code, or defaultCurrency when it
// is empty.
func ParseCurrency(currency, defaultCurrency string) string {
	if currency == "" {
		return defaultCurrency
	}
	return currency
}
