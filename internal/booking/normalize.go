package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/vat"
)

// RawItem is an order line as it arrives from checkout or the admin import:
// field names and casing vary between sources, so every known alias gets its
// own field. Pointers distinguish absent from zero.
type RawItem struct {
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	PriceIncl *decimal.Decimal `json:"price_incl"`
	VATRate   *decimal.Decimal `json:"vat_rate"`
	VAT       *decimal.Decimal `json:"vat"`
	SKU       string           `json:"sku"`
	ProductID string           `json:"product_id"`
	Quantity  *int             `json:"quantity"`
}

// RawOrder is the heterogeneous order shape accepted at the pipeline
// boundary. Timestamp and total aliases mirror the shapes the different
// upstream writers actually produce.
type RawOrder struct {
	ID             string           `json:"id"`
	OrderNumber    string           `json:"order_number"`
	CustomerID     string           `json:"customer_id"`
	Items          []RawItem        `json:"items"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	Total          *decimal.Decimal `json:"total"`
	PaymentStatus  string           `json:"payment_status"`
	PaidAtCamel    *string          `json:"paidAt"`
	PaidAtSnake    *string          `json:"paid_at"`
	CreatedAtSnake *string          `json:"created_at"`
	CreatedAtCamel *string          `json:"createdAt"`
}

// RateFallback selects what rate an item without any VAT rate gets.
type RateFallback int

const (
	// FallbackZero books rate-less items at 0%. This is the historical
	// behavior and the default.
	FallbackZero RateFallback = iota

	// FallbackStandard books rate-less items at the resolver's standard
	// rate instead. Requires NormalizeOptions.Resolver.
	FallbackStandard
)

// NormalizeOptions configures normalization policy.
type NormalizeOptions struct {
	MissingRateFallback RateFallback

	// Resolver supplies the standard rate for FallbackStandard.
	Resolver *vat.Resolver

	// Now is the clock used only when no timestamp field is present at all.
	// Defaults to time.Now.
	Now func() time.Time
}

// Normalize converts a raw order into the canonical Order shape. It is
// total: absent or malformed fields degrade to zero values, never an error,
// so a bad order can never fail a batch.
//
// Resolution rules:
//
//   - created_at: paidAt > paid_at > created_at > createdAt > now
//   - total_amount: total_amount > total > sum of item price*quantity > 0
//   - item price: price > price_incl > 0, negative clamps to 0
//   - item vat_rate: vat_rate > vat > fallback policy, clamped to [0,100]
//   - quantity: defaults to 1 when absent or not positive
func Normalize(raw RawOrder, opts NormalizeOptions) Order {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	order := Order{
		ID:            raw.ID,
		OrderNumber:   raw.OrderNumber,
		CustomerID:    raw.CustomerID,
		PaymentStatus: raw.PaymentStatus,
		CreatedAt:     resolveCreatedAt(raw, now),
		Items:         make([]Item, 0, len(raw.Items)),
	}

	for _, ri := range raw.Items {
		order.Items = append(order.Items, normalizeItem(ri, opts))
	}

	order.TotalAmount = resolveTotal(raw, order.Items)

	return order
}

func normalizeItem(ri RawItem, opts NormalizeOptions) Item {
	item := Item{
		Name:      ri.Name,
		SKU:       ri.SKU,
		ProductID: ri.ProductID,
		Quantity:  1,
	}

	switch {
	case ri.Price != nil:
		item.Price = *ri.Price
	case ri.PriceIncl != nil:
		item.Price = *ri.PriceIncl
	}
	if item.Price.IsNegative() {
		item.Price = decimal.Zero
	}

	switch {
	case ri.VATRate != nil:
		item.VATRate = *ri.VATRate
	case ri.VAT != nil:
		item.VATRate = *ri.VAT
	default:
		item.VATRate = fallbackRate(opts)
	}
	item.VATRate = clampRate(item.VATRate)

	if ri.Quantity != nil && *ri.Quantity > 0 {
		item.Quantity = *ri.Quantity
	}

	return item
}

// fallbackRate implements the configured missing-rate policy. The zero
// default deliberately differs from the resolver's own 21% fallback; the two
// paths must stay distinct (see NormalizeOptions).
func fallbackRate(opts NormalizeOptions) decimal.Decimal {
	if opts.MissingRateFallback == FallbackStandard && opts.Resolver != nil {
		return opts.Resolver.Rate(vat.CategoryStandard)
	}
	return decimal.Zero
}

func clampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return rate
}

func resolveTotal(raw RawOrder, items []Item) decimal.Decimal {
	if raw.TotalAmount != nil && !raw.TotalAmount.IsNegative() {
		return *raw.TotalAmount
	}
	if raw.Total != nil && !raw.Total.IsNegative() {
		return *raw.Total
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func resolveCreatedAt(raw RawOrder, now func() time.Time) time.Time {
	for _, candidate := range []*string{raw.PaidAtCamel, raw.PaidAtSnake, raw.CreatedAtSnake, raw.CreatedAtCamel} {
		if candidate == nil {
			continue
		}
		if ts, ok := parseTimestamp(*candidate); ok {
			return ts
		}
	}
	return now()
}

// parseTimestamp accepts the timestamp shapes seen in practice: RFC 3339
// with or without fractional seconds, a bare datetime, or a bare date.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
