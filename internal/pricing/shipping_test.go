package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testContext(isDealer bool) Context {
	return Context{
		Resolver: nlResolver(),
		Shipping: ShippingConfig{
			BaseCost:              decimal.NewFromInt(65),
			FreeShippingThreshold: decimal.NewFromInt(500),
		},
		Dealer: DealerProfile{
			IsDealer:        isDealer,
			DiscountPercent: decimal.NewFromInt(15),
		},
	}
}

func TestResolveShippingCost_NotSelected(t *testing.T) {
	quote := ResolveShippingCost(testContext(false), DeliveryNotSelected, decimal.NewFromInt(100))

	if quote.Selected {
		t.Error("quote must be unselected when no method is chosen")
	}
	// An unselected quote means "not yet calculated", not a zero cost.
	if quote.Free {
		t.Error("unselected quote must not claim free shipping")
	}
}

func TestResolveShippingCost_Pickup(t *testing.T) {
	quote := ResolveShippingCost(testContext(false), DeliveryPickup, decimal.NewFromInt(100))

	if !quote.Selected {
		t.Fatal("pickup quote must be selected")
	}
	if !quote.Cost.IsZero() || !quote.Free {
		t.Errorf("pickup must always be free, got cost %s free=%v", quote.Cost, quote.Free)
	}
}

func TestResolveShippingCost_AboveThreshold(t *testing.T) {
	quote := ResolveShippingCost(testContext(false), DeliveryShipping, decimal.NewFromInt(500))

	if !quote.Free || !quote.Cost.IsZero() {
		t.Errorf("subtotal at threshold must ship free, got cost %s free=%v", quote.Cost, quote.Free)
	}
}

func TestResolveShippingCost_Consumer(t *testing.T) {
	quote := ResolveShippingCost(testContext(false), DeliveryShipping, decimal.NewFromInt(100))

	// 65.00 base converted to VAT-inclusive at 21%.
	want := decimal.RequireFromString("78.65")
	if !quote.Cost.Equal(want) {
		t.Errorf("consumer shipping cost: got %s, want %s", quote.Cost, want)
	}
	if !quote.IncludesVAT {
		t.Error("consumer shipping cost must be VAT-inclusive")
	}
	if quote.Free {
		t.Error("below-threshold quote must not be free")
	}
}

func TestResolveShippingCost_Dealer(t *testing.T) {
	quote := ResolveShippingCost(testContext(true), DeliveryShipping, decimal.NewFromInt(100))

	// Dealers pay the VAT-exclusive base cost untouched.
	if !quote.Cost.Equal(decimal.NewFromInt(65)) {
		t.Errorf("dealer shipping cost: got %s, want 65", quote.Cost)
	}
	if quote.IncludesVAT {
		t.Error("dealer shipping cost must stay VAT-exclusive")
	}
}

func TestResolveShippingCost_NoThresholdConfigured(t *testing.T) {
	ctx := testContext(false)
	ctx.Shipping.FreeShippingThreshold = decimal.Zero

	quote := ResolveShippingCost(ctx, DeliveryShipping, decimal.NewFromInt(100000))

	if quote.Free {
		t.Error("zero threshold disables free shipping rather than making everything free")
	}
}
