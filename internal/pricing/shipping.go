package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/vat"
)

// DeliveryMethod is the shipping option chosen during checkout.
type DeliveryMethod string

// Known delivery methods. The empty string means the customer has not chosen
// yet, which is a distinct state from zero-cost shipping.
const (
	DeliveryNotSelected DeliveryMethod = ""
	DeliveryPickup      DeliveryMethod = "pickup"
	DeliveryShipping    DeliveryMethod = "shipping"
)

// ShippingQuote is the outcome of a shipping cost resolution.
//
// Selected distinguishes "no method chosen yet" from a real zero cost: while
// it is false the storefront shows neither a shipping cost nor VAT on it,
// and Cost is meaningless.
type ShippingQuote struct {
	Selected    bool
	Cost        decimal.Decimal
	Free        bool
	IncludesVAT bool
}

// ResolveShippingCost computes the shipping cost for a cart subtotal.
//
// The subtotal is expected VAT-inclusive for consumers and VAT-exclusive for
// dealers, matching how each audience sees prices. Rules, in order:
//
//  1. no method selected: return an unselected quote, nothing to show
//  2. pickup: always free
//  3. subtotal at or above the free-shipping threshold: free
//  4. otherwise the base cost applies, converted to VAT-inclusive (standard
//     category) for non-dealers only
func ResolveShippingCost(ctx Context, method DeliveryMethod, subtotal decimal.Decimal) ShippingQuote {
	if method == DeliveryNotSelected {
		return ShippingQuote{}
	}

	if method == DeliveryPickup {
		return ShippingQuote{Selected: true, Cost: decimal.Zero, Free: true}
	}

	threshold := ctx.Shipping.FreeShippingThreshold
	if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold) {
		return ShippingQuote{Selected: true, Cost: decimal.Zero, Free: true}
	}

	cost := ctx.Shipping.BaseCost
	if ctx.Dealer.IsDealer {
		// Dealers see VAT-exclusive prices everywhere, shipping included.
		return ShippingQuote{Selected: true, Cost: cost.Round(2)}
	}

	return ShippingQuote{
		Selected:    true,
		Cost:        PriceIncludingVAT(cost, vat.CategoryStandard, ctx.Resolver),
		IncludesVAT: true,
	}
}
