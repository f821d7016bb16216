package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/pricing"
	"github.com/klinkercommerce/accounting/internal/services/orders"
	"github.com/klinkercommerce/accounting/internal/vat"
)

// QuotesHandler prices carts ahead of order intake: VAT-inclusive consumer
// prices, discounted VAT-exclusive dealer prices, and the shipping cost for
// the chosen delivery method.
type QuotesHandler struct {
	orderSvc *orders.Service
	resolver *vat.Resolver
	shipping pricing.ShippingConfig
	logger   *slog.Logger
}

// NewQuotesHandler creates a new quotes handler.
func NewQuotesHandler(orderSvc *orders.Service, resolver *vat.Resolver, shipping pricing.ShippingConfig, logger *slog.Logger) *QuotesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotesHandler{
		orderSvc: orderSvc,
		resolver: resolver,
		shipping: shipping,
		logger:   logger,
	}
}

// RegisterRoutes registers the quote route on the given mux.
func (h *QuotesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/quotes", h.Quote)
}

type quoteItemRequest struct {
	Name string `json:"name"`
	// BasePrice is the VAT-exclusive list price.
	BasePrice   decimal.Decimal `json:"base_price"`
	VATCategory string          `json:"vat_category"`
	Quantity    int             `json:"quantity"`
}

type quoteRequest struct {
	CustomerID     *uuid.UUID         `json:"customer_id"`
	DeliveryMethod string             `json:"delivery_method"`
	Items          []quoteItemRequest `json:"items"`
}

type quoteLineJSON struct {
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	IncludesVAT bool            `json:"includes_vat"`
}

type quoteShippingJSON struct {
	Selected    bool            `json:"selected"`
	Cost        decimal.Decimal `json:"cost"`
	Free        bool            `json:"free"`
	IncludesVAT bool            `json:"includes_vat"`
}

type quoteResponse struct {
	Dealer   bool              `json:"dealer"`
	Lines    []quoteLineJSON   `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Shipping quoteShippingJSON `json:"shipping"`
	Total    decimal.Decimal   `json:"total"`
}

// Quote handles POST /admin/quotes. With a customer_id the customer's dealer
// terms apply: discounted VAT-exclusive prices and VAT-exclusive shipping.
// Without one the cart is priced as a consumer sees it, VAT included.
func (h *QuotesHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "quote needs at least one item"})
		return
	}

	pctx := pricing.Context{Resolver: h.resolver, Shipping: h.shipping}
	if req.CustomerID != nil {
		customer, err := h.orderSvc.GetCustomer(r.Context(), *req.CustomerID)
		if err != nil {
			if errors.Is(err, orders.ErrCustomerNotFound) {
				writeJSON(w, http.StatusNotFound, errorJSON{Error: "customer not found"})
				return
			}
			h.logger.Error("getting customer for quote failed", "customer_id", req.CustomerID.String(), "error", err)
			writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
			return
		}
		pctx.Dealer = pricing.DealerProfile{
			IsDealer:        customer.IsDealer,
			DiscountPercent: customer.DealerDiscountPercent,
		}
	}

	resp := quoteResponse{Dealer: pctx.Dealer.IsDealer, Subtotal: decimal.Zero}
	for _, item := range req.Items {
		if item.BasePrice.IsNegative() {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: "item price cannot be negative"})
			return
		}
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}

		var unit decimal.Decimal
		if pctx.Dealer.IsDealer {
			unit = pricing.ApplyDealerDiscount(item.BasePrice, pctx.Dealer.DiscountPercent)
		} else {
			unit = pricing.PriceIncludingVAT(item.BasePrice, vat.Category(item.VATCategory), h.resolver)
		}
		lineTotal := unit.Mul(decimal.NewFromInt(int64(qty)))

		resp.Lines = append(resp.Lines, quoteLineJSON{
			Name:        item.Name,
			UnitPrice:   unit,
			Quantity:    qty,
			LineTotal:   lineTotal,
			IncludesVAT: !pctx.Dealer.IsDealer,
		})
		resp.Subtotal = resp.Subtotal.Add(lineTotal)
	}

	quote := pricing.ResolveShippingCost(pctx, pricing.DeliveryMethod(req.DeliveryMethod), resp.Subtotal)
	resp.Shipping = quoteShippingJSON{
		Selected:    quote.Selected,
		Cost:        quote.Cost,
		Free:        quote.Free,
		IncludesVAT: quote.IncludesVAT,
	}
	resp.Total = resp.Subtotal
	if quote.Selected {
		resp.Total = resp.Total.Add(quote.Cost)
	}

	writeJSON(w, http.StatusOK, resp)
}
