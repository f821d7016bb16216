package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FixtureCustomer inserts a minimal customer and returns its ID.
func (tdb *TestDB) FixtureCustomer(t *testing.T, companyName, email string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	_, err := tdb.Pool.Exec(ctx, `
		INSERT INTO customers (id, company_name, email)
		VALUES ($1, $2, $3)`,
		id, companyName, email,
	)
	if err != nil {
		t.Fatalf("creating fixture customer %q: %v", email, err)
	}
	return id
}

// FixtureDealer inserts a dealer customer with the given discount percentage.
func (tdb *TestDB) FixtureDealer(t *testing.T, companyName string, discountPercent decimal.Decimal) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	_, err := tdb.Pool.Exec(ctx, `
		INSERT INTO customers (id, company_name, is_dealer, dealer_discount_percent)
		VALUES ($1, $2, true, $3)`,
		id, companyName, discountPercent,
	)
	if err != nil {
		t.Fatalf("creating fixture dealer %q: %v", companyName, err)
	}
	return id
}

// FixtureItem describes one order line for FixtureOrder.
type FixtureItem struct {
	Name     string
	Price    decimal.Decimal
	VATRate  *decimal.Decimal
	Quantity int
}

// FixtureOrder inserts a paid order with the given items and returns its ID.
// The total is the sum of price times quantity per item.
func (tdb *TestDB) FixtureOrder(t *testing.T, customerID uuid.UUID, createdAt time.Time, items []FixtureItem) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	total := decimal.Zero
	for _, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	orderID := uuid.New()
	_, err := tdb.Pool.Exec(ctx, `
		INSERT INTO orders (id, customer_id, total_amount, payment_status, paid_at, created_at)
		VALUES ($1, $2, $3, 'paid', $4, $4)`,
		orderID, customerID, total, createdAt,
	)
	if err != nil {
		t.Fatalf("creating fixture order: %v", err)
	}

	for i, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		_, err := tdb.Pool.Exec(ctx, `
			INSERT INTO order_items (id, order_id, name, price, vat_rate, quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), orderID, item.Name, item.Price, item.VATRate, qty, i,
		)
		if err != nil {
			t.Fatalf("creating fixture order item %q: %v", item.Name, err)
		}
	}

	return orderID
}

// FixtureVATSetting upserts a vat_settings row.
func (tdb *TestDB) FixtureVATSetting(t *testing.T, countryCode string, standard, reduced, zero decimal.Decimal) {
	t.Helper()
	ctx := context.Background()

	_, err := tdb.Pool.Exec(ctx, `
		INSERT INTO vat_settings (country_code, standard_rate, reduced_rate, zero_rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (country_code) DO UPDATE SET
			standard_rate = EXCLUDED.standard_rate,
			reduced_rate  = EXCLUDED.reduced_rate,
			zero_rate     = EXCLUDED.zero_rate,
			updated_at    = now()`,
		countryCode, standard, reduced, zero,
	)
	if err != nil {
		t.Fatalf("upserting vat setting %s: %v", countryCode, err)
	}
}
