package region

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alpenform/storefront/internal/domain/shared/valueobject"
)

// FallbackRegionID is the reserved sentinel meaning "no commerce backend
// reachable". All remote cart operations are disabled while it is active.
const FallbackRegionID = "reg_fallback"

// Region is a currency/tax/country scope that prices and carts are bound to
type Region struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CurrencyCode string          `json:"currency_code"`
	Countries    []string        `json:"countries,omitempty"`
	TaxRate      decimal.Decimal `json:"tax_rate,omitempty"`
}

// IsFallback reports whether this is the offline sentinel region
func (r Region) IsFallback() bool {
	return r.ID == FallbackRegionID
}

// Fallback returns the sentinel region used when region resolution fails
func Fallback(currencyCode string) Region {
	return Region{
		ID:           FallbackRegionID,
		Name:         "Fallback",
		CurrencyCode: strings.ToLower(currencyCode),
	}
}

// Select picks the active region from the backend's region list.
// Preference order: a previously persisted explicit choice, then the
// region matching the store's primary currency, then the first region.
// An empty list yields the fallback region.
func Select(regions []Region, persistedID, primaryCurrency string) Region {
	if len(regions) == 0 {
		return Fallback(primaryCurrency)
	}

	if persistedID != "" {
		for _, r := range regions {
			if r.ID == persistedID {
				return r
			}
		}
	}

	for _, r := range regions {
		if strings.EqualFold(r.CurrencyCode, primaryCurrency) {
			return r
		}
	}

	return regions[0]
}

// FormatAmount renders a price prefixed with the region's currency code,
// e.g. "CHF 79.90".
func (r Region) FormatAmount(amount decimal.Decimal) string {
	m, err := valueobject.NewMoney(amount, valueobject.Currency(strings.ToUpper(r.CurrencyCode)))
	if err != nil {
		m = valueobject.NewMoneyCHF(amount)
	}
	return m.String()
}
