package domain

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCNY Currency = "CNY"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// ReferenceCurrency is the currency exchange rates are quoted against when a
// payment does not carry an explicit pair.
const ReferenceCurrency = CurrencyUSD

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyCNY, CurrencyEUR, CurrencyGBP:
		return true
	}
	return false
}
