package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a directed quote: one unit of From buys Rate units of To.
// Every balance-affecting conversion in the system goes through Convert so
// the direction is always explicit.
type ExchangeRate struct {
	From Currency
	To   Currency
	Rate decimal.Decimal
	AsOf time.Time
}

func NewExchangeRate(from, to Currency, rate decimal.Decimal, asOf time.Time) (ExchangeRate, error) {
	if !from.IsValid() || !to.IsValid() {
		return ExchangeRate{}, fmt.Errorf("NewExchangeRate: %s/%s: %w", from, to, ErrInvalidCurrency)
	}
	if rate.Sign() <= 0 {
		return ExchangeRate{}, fmt.Errorf("NewExchangeRate: %w", ErrInvalidRate)
	}
	return ExchangeRate{From: from, To: to, Rate: rate, AsOf: asOf}, nil
}

// Convert translates amount from one currency to the other. Multiplies along
// the quoted pair, divides against it, and refuses pairs it does not cover.
func (r ExchangeRate) Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	switch {
	case from == r.From && to == r.To:
		return amount.Mul(r.Rate), nil
	case from == r.To && to == r.From:
		if r.Rate.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("Convert: %w", ErrInvalidRate)
		}
		return amount.DivRound(r.Rate, 8), nil
	}
	return decimal.Zero, fmt.Errorf("Convert: %s->%s with %s/%s quote: %w",
		from, to, r.From, r.To, ErrRateMismatch)
}

// Covers reports whether the quote can convert between the two currencies,
// in either direction.
func (r ExchangeRate) Covers(a, b Currency) bool {
	if a == b {
		return true
	}
	return (a == r.From && b == r.To) || (a == r.To && b == r.From)
}

// AllocatedInInvoiceCurrency expresses an allocated amount (in the payment's
// currency) in the invoice's currency. When the currencies differ and no
// usable quote is present, the amount is counted at face value and the second
// return is false so callers can surface the mismatch as an advisory.
func AllocatedInInvoiceCurrency(amount decimal.Decimal, allocCurrency, invoiceCurrency Currency, rate *ExchangeRate) (decimal.Decimal, bool) {
	if allocCurrency == invoiceCurrency {
		return amount, true
	}
	if rate == nil || !rate.Covers(allocCurrency, invoiceCurrency) {
		return amount, false
	}
	converted, err := rate.Convert(amount, allocCurrency, invoiceCurrency)
	if err != nil {
		return amount, false
	}
	return converted, true
}
