package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/vat"
)

func nlResolver() *vat.Resolver {
	cache := vat.NewSettingsCache()
	cache.Load([]vat.Setting{
		{
			CountryCode:  "NL",
			StandardRate: decimal.NewFromInt(21),
			ReducedRate:  decimal.NewFromInt(9),
		},
	})
	return vat.NewResolver(cache, nil)
}

func TestPriceIncludingVAT(t *testing.T) {
	resolver := nlResolver()

	tests := []struct {
		name     string
		base     string
		category vat.Category
		want     string
	}{
		{"standard 21% on 100", "100", vat.CategoryStandard, "121"},
		{"reduced 9% on 100", "100", vat.CategoryReduced, "109"},
		{"zero category", "100", vat.CategoryZero, "100"},
		{"rounds half up", "10.25", vat.CategoryStandard, "12.4"},
		{"zero base", "0", vat.CategoryStandard, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := decimal.RequireFromString(tt.base)
			got := PriceIncludingVAT(base, tt.category, resolver)
			if got.String() != tt.want {
				t.Errorf("PriceIncludingVAT(%s, %s): got %s, want %s", tt.base, tt.category, got, tt.want)
			}
		})
	}
}

func TestPriceIncludingVAT_RoundTrip(t *testing.T) {
	resolver := nlResolver()
	rate := decimal.NewFromInt(21)

	for _, base := range []string{"0.01", "1", "9.99", "100", "123.45", "9999.99"} {
		b := decimal.RequireFromString(base)
		incl := PriceIncludingVAT(b, vat.CategoryStandard, resolver)

		if incl.LessThan(b) {
			t.Errorf("inclusive price %s below base %s", incl, b)
		}

		back := incl.Div(decimal.NewFromInt(1).Add(rate.Div(decimal.NewFromInt(100)))).Round(2)
		if back.Sub(b).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
			t.Errorf("round trip of %s drifted to %s", b, back)
		}
	}
}

func TestApplyDealerDiscount(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		discount string
		want     string
	}{
		{"15 percent off 100", "100", "15", "85"},
		{"no discount", "100", "0", "100"},
		{"full discount", "100", "100", "0"},
		{"rounds to cents", "99.99", "15", "84.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDealerDiscount(
				decimal.RequireFromString(tt.base),
				decimal.RequireFromString(tt.discount),
			)
			if got.String() != tt.want {
				t.Errorf("ApplyDealerDiscount(%s, %s): got %s, want %s", tt.base, tt.discount, got, tt.want)
			}
		})
	}
}

func TestApplyDealerDiscount_NotVATAdjusted(t *testing.T) {
	// Dealer prices are VAT-exclusive and stay that way: the discounted price
	// is the final price, with no VAT conversion layered on top.
	got := ApplyDealerDiscount(decimal.NewFromInt(100), decimal.NewFromInt(15))
	if !got.Equal(decimal.NewFromInt(85)) {
		t.Errorf("got %s, want exactly 85.00 with no VAT applied", got)
	}
}
