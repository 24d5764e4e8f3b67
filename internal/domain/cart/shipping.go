package cart

import "github.com/shopspring/decimal"

// Shipping option identifiers used when no fulfillment backend is
// reachable. The two tiers mirror the store's real carrier setup.
const (
	FallbackStandardOptionID = "so_local_standard"
	FallbackExpressOptionID  = "so_local_express"
)

// ShippingOption is a selectable fulfillment option with its price
type ShippingOption struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	TaxInclusive bool            `json:"tax_inclusive"`
}

// IsStandardTier reports whether the option is the standard tier, the
// only tier eligible for the free-shipping override.
func (o ShippingOption) IsStandardTier() bool {
	return o.ID == FallbackStandardOptionID
}

// FallbackShippingOptions returns the fixed standard/express tiers used
// in local mode or when the fulfillment API cannot be reached.
func FallbackShippingOptions(standardAmount, expressAmount decimal.Decimal) []ShippingOption {
	return []ShippingOption{
		{
			ID:           FallbackStandardOptionID,
			Name:         "Standard",
			Amount:       standardAmount,
			TaxInclusive: true,
		},
		{
			ID:           FallbackExpressOptionID,
			Name:         "Express",
			Amount:       expressAmount,
			TaxInclusive: true,
		},
	}
}

// LocalShippingAmount computes the shipping cost for a locally selected
// option. Standard shipping is free once the cart subtotal meets the
// threshold; express never qualifies.
func LocalShippingAmount(option ShippingOption, subtotal, freeShippingThreshold decimal.Decimal) decimal.Decimal {
	if option.IsStandardTier() && subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		return decimal.Zero
	}
	return option.Amount
}
