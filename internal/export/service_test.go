package export

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/booking"
	"github.com/klinkercommerce/accounting/internal/testutil"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	var code int
	defer func() { os.Exit(code) }()

	db, err := testutil.SetupTestDB()
	if err != nil {
		log.Fatalf("setting up test database: %v", err)
	}
	defer db.Close()
	testDB = db

	code = m.Run()
}

func paidOrder(id string) booking.Order {
	return booking.Order{
		ID:          id,
		OrderNumber: "1001",
		Items: []booking.Item{
			{Name: "Velgenset", Price: decimal.NewFromInt(121), VATRate: decimal.NewFromInt(21), Quantity: 2},
		},
		TotalAmount:   decimal.NewFromInt(242),
		PaymentStatus: "paid",
		CreatedAt:     time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
	}
}

func TestPostOrder(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	svc := NewService(testDB.Pool, nil, nil)

	exp, err := svc.PostOrder(ctx, paidOrder("ord_post_1"), booking.Customer{ID: "c1", CompanyName: "Banden Centrum"})
	if err != nil {
		t.Fatalf("PostOrder: %v", err)
	}

	if exp.OrderID != "ord_post_1" {
		t.Errorf("got order id %q, want ord_post_1", exp.OrderID)
	}
	if got := exp.Bookings.Verkoop.Regels[0].Bedrag; got != "242.00" {
		t.Errorf("stored debtor amount: got %s, want 242.00", got)
	}

	stored, err := svc.Get(ctx, "ord_post_1")
	if err != nil {
		t.Fatalf("Get after post: %v", err)
	}
	if len(stored.Bookings.Verkoop.Regels) != 3 {
		t.Errorf("got %d stored sales rules, want 3", len(stored.Bookings.Verkoop.Regels))
	}
}

func TestPostOrder_AtMostOnce(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	svc := NewService(testDB.Pool, nil, nil)
	customer := booking.Customer{ID: "c1", CompanyName: "Banden Centrum"}

	first, err := svc.PostOrder(ctx, paidOrder("ord_repeat"), customer)
	if err != nil {
		t.Fatalf("first post: %v", err)
	}
	second, err := svc.PostOrder(ctx, paidOrder("ord_repeat"), customer)
	if err != nil {
		t.Fatalf("second post: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("repeated post created a new export: %s vs %s", first.ID, second.ID)
	}

	firstJSON, _ := json.Marshal(first.Bookings)
	secondJSON, _ := json.Marshal(second.Bookings)
	if string(firstJSON) != string(secondJSON) {
		t.Error("repeated post returned different bookings")
	}

	var count int
	if err := testDB.Pool.QueryRow(ctx, `SELECT count(*) FROM booking_exports`).Scan(&count); err != nil {
		t.Fatalf("counting exports: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d export rows, want 1", count)
	}
}

func TestPostOrder_FailsClosedOnImbalance(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	svc := NewService(testDB.Pool, nil, nil)

	// Stored total disagrees with the item lines, so the sales batch cannot
	// balance. The post must abort and store nothing.
	order := paidOrder("ord_imbalanced")
	order.TotalAmount = decimal.NewFromInt(300)

	_, err := svc.PostOrder(ctx, order, booking.Customer{ID: "c1"})

	var imbalance *booking.ImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("got err %v, want an ImbalanceError", err)
	}

	if _, err := svc.Get(ctx, "ord_imbalanced"); !errors.Is(err, ErrNotFound) {
		t.Errorf("imbalanced order was stored anyway: got err %v", err)
	}
}

func TestPostOrder_MissingID(t *testing.T) {
	testDB.Truncate(t)
	svc := NewService(testDB.Pool, nil, nil)

	order := paidOrder("")
	if _, err := svc.PostOrder(context.Background(), order, booking.Customer{}); !errors.Is(err, ErrMissingOrderID) {
		t.Errorf("got err %v, want ErrMissingOrderID", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	testDB.Truncate(t)
	svc := NewService(testDB.Pool, nil, nil)

	if _, err := svc.Get(context.Background(), "no_such_order"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got err %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	svc := NewService(testDB.Pool, nil, nil)
	customer := booking.Customer{ID: "c1"}

	for _, id := range []string{"ord_a", "ord_b", "ord_c"} {
		if _, err := svc.PostOrder(ctx, paidOrder(id), customer); err != nil {
			t.Fatalf("posting %s: %v", id, err)
		}
	}

	exports, total, err := svc.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("got total %d, want 3", total)
	}
	if len(exports) != 2 {
		t.Errorf("got %d exports on page 1, want 2", len(exports))
	}

	rest, _, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("got %d exports on page 2, want 1", len(rest))
	}
}
