// Package pricing implements the price calculations the storefront and the
// booking pipeline share: VAT-inclusive conversion, dealer discounts, and
// shipping cost resolution. All functions are pure; configuration arrives
// through an explicit Context, never ambient state.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/vat"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// DealerProfile carries the per-account wholesale terms of a customer.
// Dealer prices are VAT-exclusive throughout.
type DealerProfile struct {
	IsDealer        bool
	DiscountPercent decimal.Decimal
}

// ShippingConfig holds the store-wide shipping parameters.
type ShippingConfig struct {
	BaseCost              decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Context bundles everything a pricing calculation needs. Callers construct
// it once per request and pass it down explicitly.
type Context struct {
	Resolver *vat.Resolver
	Shipping ShippingConfig
	Dealer   DealerProfile
}

// PriceIncludingVAT converts a VAT-exclusive base price to a VAT-inclusive
// price for the given category, rounded half-up to 2 decimal places.
func PriceIncludingVAT(base decimal.Decimal, category vat.Category, resolver *vat.Resolver) decimal.Decimal {
	rate := resolver.Rate(category)
	return base.Mul(one.Add(rate.Div(hundred))).Round(2)
}

// ApplyDealerDiscount reduces a VAT-exclusive base price by the given
// discount percentage, rounded to 2 decimal places. The result is never
// additionally VAT-adjusted; dealer flows stay VAT-exclusive end to end.
func ApplyDealerDiscount(base, discountPercent decimal.Decimal) decimal.Decimal {
	return base.Mul(one.Sub(discountPercent.Div(hundred))).Round(2)
}
