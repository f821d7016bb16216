package admin_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/auth"
	"github.com/klinkercommerce/accounting/internal/booking"
	"github.com/klinkercommerce/accounting/internal/export"
	admin "github.com/klinkercommerce/accounting/internal/handlers/admin"
	"github.com/klinkercommerce/accounting/internal/middleware"
	"github.com/klinkercommerce/accounting/internal/pricing"
	"github.com/klinkercommerce/accounting/internal/services/orders"
	"github.com/klinkercommerce/accounting/internal/testutil"
	"github.com/klinkercommerce/accounting/internal/vat"
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

// newServer assembles the admin surface the same way cmd/server does.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	pool := testDB.Pool
	sessionMgr := auth.NewSessionManager(pool, 0)
	authService := auth.NewService(pool, sessionMgr, nil)

	vatCache := vat.NewSettingsCache()
	vatRepo := vat.NewRepository(pool, vatCache, nil)
	if err := vatRepo.Reload(t.Context()); err != nil {
		t.Fatalf("loading vat settings: %v", err)
	}
	resolver := vat.NewResolver(vatCache, nil)

	orderSvc := orders.NewService(pool, nil)
	exportSvc := export.NewService(pool, nil, nil)

	mux := http.NewServeMux()
	admin.NewAuthHandler(authService, nil).RegisterRoutes(mux)

	protected := http.NewServeMux()
	admin.NewSettingsHandler(vatRepo, nil).RegisterRoutes(protected)
	admin.NewOrdersHandler(orderSvc, nil).RegisterRoutes(protected)
	admin.NewBookingsHandler(orderSvc, exportSvc, booking.NormalizeOptions{Resolver: resolver}, nil).RegisterRoutes(protected)
	shippingCfg := pricing.ShippingConfig{
		BaseCost:              decimal.NewFromInt(65),
		FreeShippingThreshold: decimal.NewFromInt(500),
	}
	admin.NewQuotesHandler(orderSvc, resolver, shippingCfg, nil).RegisterRoutes(protected)
	mux.Handle("/admin/", middleware.RequireAuth(authService)(protected))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	sessionMgr := auth.NewSessionManager(testDB.Pool, 0)
	authService := auth.NewService(testDB.Pool, sessionMgr, nil)
	if _, err := authService.CreateUser(t.Context(), "admin@test.local", "testwachtwoord"); err != nil {
		t.Fatalf("creating admin user: %v", err)
	}

	resp := doJSON(t, srv, http.MethodPost, "/admin/login", "", map[string]string{
		"email":    "admin@test.local",
		"password": "testwachtwoord",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return body.Token
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestAdminSurface_RequiresAuth(t *testing.T) {
	testDB.Truncate(t)
	srv := newServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/admin/orders", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated request: got status %d, want 401", resp.StatusCode)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	testDB.Truncate(t)
	srv := newServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/admin/login", "", map[string]string{
		"email":    "nobody@test.local",
		"password": "whatever",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", resp.StatusCode)
	}
}

func TestVATSettingsCRUD(t *testing.T) {
	testDB.Truncate(t)
	srv := newServer(t)
	token := login(t, srv)

	resp := doJSON(t, srv, http.MethodPut, "/admin/vat-settings/de", token, map[string]any{
		"standard_rate": "19",
		"reduced_rate":  "7",
		"zero_rate":     "0",
		"description":   "Duitsland",
		"is_eu_member":  true,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert: got status %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, http.MethodGet, "/admin/vat-settings/DE", token, nil)
	var setting struct {
		CountryCode  string `json:"country_code"`
		StandardRate string `json:"standard_rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&setting); err != nil {
		t.Fatalf("decoding setting: %v", err)
	}
	resp.Body.Close()
	if setting.CountryCode != "DE" || setting.StandardRate != "19" {
		t.Errorf("got %+v", setting)
	}

	resp = doJSON(t, srv, http.MethodDelete, "/admin/vat-settings/DE", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: got status %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, http.MethodGet, "/admin/vat-settings/DE", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: got status %d", resp.StatusCode)
	}
}

func TestQuotes(t *testing.T) {
	testDB.Truncate(t)
	srv := newServer(t)
	token := login(t, srv)

	type quoteJSON struct {
		Dealer bool `json:"dealer"`
		Lines  []struct {
			UnitPrice   string `json:"unit_price"`
			LineTotal   string `json:"line_total"`
			IncludesVAT bool   `json:"includes_vat"`
		} `json:"lines"`
		Subtotal string `json:"subtotal"`
		Shipping struct {
			Selected    bool   `json:"selected"`
			Cost        string `json:"cost"`
			Free        bool   `json:"free"`
			IncludesVAT bool   `json:"includes_vat"`
		} `json:"shipping"`
		Total string `json:"total"`
	}

	getQuote := func(t *testing.T, payload map[string]any) quoteJSON {
		t.Helper()
		resp := doJSON(t, srv, http.MethodPost, "/admin/quotes", token, payload)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("quote: got status %d", resp.StatusCode)
		}
		var quote quoteJSON
		if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
			t.Fatalf("decoding quote: %v", err)
		}
		return quote
	}

	t.Run("consumer pays VAT-inclusive prices and shipping", func(t *testing.T) {
		quote := getQuote(t, map[string]any{
			"delivery_method": "shipping",
			"items": []map[string]any{
				{"name": "Velg", "base_price": "100", "vat_category": "standard", "quantity": 1},
			},
		})

		if quote.Dealer {
			t.Error("quote marked as dealer")
		}
		if quote.Lines[0].UnitPrice != "121" || !quote.Lines[0].IncludesVAT {
			t.Errorf("unit price: got %s (incl=%v), want 121 incl", quote.Lines[0].UnitPrice, quote.Lines[0].IncludesVAT)
		}
		if quote.Shipping.Cost != "78.65" || !quote.Shipping.IncludesVAT {
			t.Errorf("shipping: got %s (incl=%v), want 78.65 incl", quote.Shipping.Cost, quote.Shipping.IncludesVAT)
		}
		if quote.Total != "199.65" {
			t.Errorf("total: got %s, want 199.65", quote.Total)
		}
	})

	t.Run("dealer pays discounted VAT-exclusive prices", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/admin/customers", token, map[string]any{
			"company_name":            "Banden Groothandel Noord",
			"is_dealer":               true,
			"dealer_discount_percent": "10",
		})
		var customer struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
			t.Fatalf("decoding customer: %v", err)
		}
		resp.Body.Close()

		quote := getQuote(t, map[string]any{
			"customer_id":     customer.ID,
			"delivery_method": "shipping",
			"items": []map[string]any{
				{"name": "Velg", "base_price": "100", "vat_category": "standard", "quantity": 2},
			},
		})

		if !quote.Dealer {
			t.Error("quote not marked as dealer")
		}
		if quote.Lines[0].UnitPrice != "90" || quote.Lines[0].IncludesVAT {
			t.Errorf("unit price: got %s (incl=%v), want 90 excl", quote.Lines[0].UnitPrice, quote.Lines[0].IncludesVAT)
		}
		if quote.Lines[0].LineTotal != "180" {
			t.Errorf("line total: got %s, want 180", quote.Lines[0].LineTotal)
		}
		if quote.Shipping.Cost != "65" || quote.Shipping.IncludesVAT {
			t.Errorf("shipping: got %s (incl=%v), want 65 excl", quote.Shipping.Cost, quote.Shipping.IncludesVAT)
		}
		if quote.Total != "245" {
			t.Errorf("total: got %s, want 245", quote.Total)
		}
	})

	t.Run("free shipping above the threshold", func(t *testing.T) {
		quote := getQuote(t, map[string]any{
			"delivery_method": "shipping",
			"items": []map[string]any{
				{"name": "Velgenset", "base_price": "500", "vat_category": "standard", "quantity": 1},
			},
		})

		if !quote.Shipping.Free || quote.Shipping.Cost != "0" {
			t.Errorf("shipping: got free=%v cost=%s, want free at 0", quote.Shipping.Free, quote.Shipping.Cost)
		}
		if quote.Total != "605" {
			t.Errorf("total: got %s, want 605", quote.Total)
		}
	})

	t.Run("no delivery method selected", func(t *testing.T) {
		quote := getQuote(t, map[string]any{
			"items": []map[string]any{
				{"name": "Velg", "base_price": "100", "vat_category": "standard", "quantity": 1},
			},
		})

		if quote.Shipping.Selected {
			t.Error("shipping selected without a delivery method")
		}
		if quote.Total != quote.Subtotal {
			t.Errorf("total %s differs from subtotal %s without shipping", quote.Total, quote.Subtotal)
		}
	})
}

func TestOrderBookingFlow(t *testing.T) {
	testDB.Truncate(t)
	srv := newServer(t)
	token := login(t, srv)

	// Create a customer and a paid order.
	resp := doJSON(t, srv, http.MethodPost, "/admin/customers", token, map[string]any{
		"company_name": "Banden Centrum Drenthe",
		"email":        "info@bandencentrum.nl",
	})
	var customer struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		t.Fatalf("decoding customer: %v", err)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/admin/orders", token, map[string]any{
		"customer_id": customer.ID,
		"items": []map[string]any{
			{"name": "Velgenset", "price": "121", "vat_rate": "21", "quantity": 2},
		},
	})
	var order struct {
		ID          string `json:"id"`
		TotalAmount string `json:"total_amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decoding order: %v", err)
	}
	resp.Body.Close()
	if order.TotalAmount != "242" {
		t.Errorf("order total: got %s, want 242", order.TotalAmount)
	}

	// Preview works before payment, posting does not.
	resp = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/admin/orders/%s/bookings", order.ID), token, nil)
	var preview booking.OrderBookings
	if err := json.NewDecoder(resp.Body).Decode(&preview); err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	resp.Body.Close()
	if len(preview.Verkoop.Regels) != 3 {
		t.Errorf("preview: got %d sales rules, want 3", len(preview.Verkoop.Regels))
	}

	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/admin/orders/%s/bookings", order.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("posting unpaid order: got status %d, want 409", resp.StatusCode)
	}

	// Pay, then post.
	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/admin/orders/%s/mark-paid", order.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark-paid: got status %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/admin/orders/%s/bookings", order.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post: got status %d", resp.StatusCode)
	}

	// The export is retrievable and appears in the CSV download.
	resp = doJSON(t, srv, http.MethodGet, "/admin/exports/"+order.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get export: got status %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, http.MethodGet, "/admin/exports/csv", token, nil)
	var csvBody bytes.Buffer
	if _, err := csvBody.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	resp.Body.Close()
	if !strings.Contains(csvBody.String(), "HOOG_VERK_21") {
		t.Errorf("csv download missing VAT code:\n%s", csvBody.String())
	}
}
