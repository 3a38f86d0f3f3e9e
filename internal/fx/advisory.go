// Package fx holds the advisory rate table used to warn callers when a
// payment's currency differs from an allocated invoice's currency. These
// quotes are informational only: every balance-affecting conversion uses the
// ExchangeRate stored on the payment itself.
package fx

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orbitrade/finance-backend/internal/domain"
)

type AdvisoryRates struct {
	rates map[string]decimal.Decimal
}

// Parse builds the table from "FROM_TO=rate" pairs, e.g.
// "USD_CNY=7.2,EUR_USD=1.087". Unknown currencies are rejected.
func Parse(spec string) (*AdvisoryRates, error) {
	table := &AdvisoryRates{rates: make(map[string]decimal.Decimal)}
	if strings.TrimSpace(spec) == "" {
		return table, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("fx.Parse: malformed pair %q", pair)
		}
		from, to, ok := strings.Cut(key, "_")
		if !ok {
			return nil, fmt.Errorf("fx.Parse: malformed pair key %q", key)
		}
		if !domain.Currency(from).IsValid() || !domain.Currency(to).IsValid() {
			return nil, fmt.Errorf("fx.Parse: %s_%s: %w", from, to, domain.ErrInvalidCurrency)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("fx.Parse: rate for %s: %w", key, err)
		}
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("fx.Parse: %s: %w", key, domain.ErrInvalidRate)
		}
		table.rates[key] = rate
	}
	return table, nil
}

func pairKey(from, to domain.Currency) string {
	return string(from) + "_" + string(to)
}

// Quote returns an advisory rate for the pair if configured, trying the
// inverse orientation when the direct one is absent.
func (a *AdvisoryRates) Quote(from, to domain.Currency) (domain.ExchangeRate, bool) {
	if from == to {
		return domain.ExchangeRate{From: from, To: to, Rate: decimal.NewFromInt(1), AsOf: time.Now().UTC()}, true
	}
	if rate, ok := a.rates[pairKey(from, to)]; ok {
		return domain.ExchangeRate{From: from, To: to, Rate: rate, AsOf: time.Now().UTC()}, true
	}
	if rate, ok := a.rates[pairKey(to, from)]; ok {
		return domain.ExchangeRate{From: to, To: from, Rate: rate, AsOf: time.Now().UTC()}, true
	}
	return domain.ExchangeRate{}, false
}
