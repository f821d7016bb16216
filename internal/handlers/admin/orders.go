package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/services/orders"
)

// OrdersHandler handles customer and order administration.
type OrdersHandler struct {
	orderSvc *orders.Service
	logger   *slog.Logger
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(orderSvc *orders.Service, logger *slog.Logger) *OrdersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrdersHandler{
		orderSvc: orderSvc,
		logger:   logger,
	}
}

// RegisterRoutes registers the order admin routes on the given mux.
func (h *OrdersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/orders", h.List)
	mux.HandleFunc("POST /admin/orders", h.Create)
	mux.HandleFunc("GET /admin/orders/{id}", h.Get)
	mux.HandleFunc("POST /admin/orders/{id}/mark-paid", h.MarkPaid)
	mux.HandleFunc("POST /admin/customers", h.CreateCustomer)
	mux.HandleFunc("GET /admin/customers/{id}", h.GetCustomer)
}

// --- JSON representations ---

type itemJSON struct {
	Name      string           `json:"name"`
	SKU       string           `json:"sku,omitempty"`
	ProductID string           `json:"product_id,omitempty"`
	Price     decimal.Decimal  `json:"price"`
	VATRate   *decimal.Decimal `json:"vat_rate"`
	Quantity  int              `json:"quantity"`
}

type orderJSON struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   int64           `json:"order_number"`
	CustomerID    *uuid.UUID      `json:"customer_id"`
	Items         []itemJSON      `json:"items,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus string          `json:"payment_status"`
	PaidAt        *time.Time      `json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toOrderJSON(o orders.Order) orderJSON {
	out := orderJSON{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		TotalAmount:   o.TotalAmount,
		PaymentStatus: o.PaymentStatus,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, itemJSON{
			Name:      item.Name,
			SKU:       item.SKU,
			ProductID: item.ProductID,
			Price:     item.Price,
			VATRate:   item.VATRate,
			Quantity:  item.Quantity,
		})
	}
	return out
}

type customerJSON struct {
	ID                    uuid.UUID       `json:"id"`
	CompanyName           string          `json:"company_name"`
	Email                 string          `json:"email"`
	Address               string          `json:"address,omitempty"`
	PostalCode            string          `json:"postal_code,omitempty"`
	City                  string          `json:"city,omitempty"`
	IsDealer              bool            `json:"is_dealer"`
	DealerDiscountPercent decimal.Decimal `json:"dealer_discount_percent"`
	CreatedAt             time.Time       `json:"created_at"`
}

func toCustomerJSON(c orders.Customer) customerJSON {
	return customerJSON{
		ID:                    c.ID,
		CompanyName:           c.CompanyName,
		Email:                 c.Email,
		Address:               c.Address,
		PostalCode:            c.PostalCode,
		City:                  c.City,
		IsDealer:              c.IsDealer,
		DealerDiscountPercent: c.DealerDiscountPercent,
		CreatedAt:             c.CreatedAt,
	}
}

// --- Handlers ---

// List handles GET /admin/orders with optional status, page, and page_size
// query parameters.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	list, total, err := h.orderSvc.List(r.Context(), q.Get("status"), page, pageSize)
	if err != nil {
		h.logger.Error("listing orders failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	data := make([]orderJSON, 0, len(list))
	for _, o := range list {
		data = append(data, toOrderJSON(o))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:       data,
		Page:       page,
		TotalPages: totalPages(total, pageSize),
		Total:      total,
	})
}

type createOrderRequest struct {
	CustomerID    *uuid.UUID       `json:"customer_id"`
	Items         []itemJSON       `json:"items"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	PaymentStatus string           `json:"payment_status"`
	PaidAt        *time.Time       `json:"paid_at"`
}

// Create handles POST /admin/orders.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "order needs at least one item"})
		return
	}

	params := orders.CreateOrderParams{
		CustomerID:    req.CustomerID,
		TotalAmount:   req.TotalAmount,
		PaymentStatus: req.PaymentStatus,
		PaidAt:        req.PaidAt,
	}
	for _, item := range req.Items {
		params.Items = append(params.Items, orders.CreateItemInput{
			Name:      item.Name,
			SKU:       item.SKU,
			ProductID: item.ProductID,
			Price:     item.Price,
			VATRate:   item.VATRate,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orderSvc.Create(r.Context(), params)
	if err != nil {
		h.logger.Error("creating order failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderJSON(order))
}

// Get handles GET /admin/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid order id"})
		return
	}

	order, err := h.orderSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "order not found"})
			return
		}
		h.logger.Error("getting order failed", "order_id", id.String(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderJSON(order))
}

// MarkPaid handles POST /admin/orders/{id}/mark-paid.
func (h *OrdersHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid order id"})
		return
	}

	order, err := h.orderSvc.MarkPaid(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "order not found"})
			return
		}
		h.logger.Error("marking order paid failed", "order_id", id.String(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderJSON(order))
}

type createCustomerRequest struct {
	CompanyName           string          `json:"company_name"`
	Email                 string          `json:"email"`
	Address               string          `json:"address"`
	PostalCode            string          `json:"postal_code"`
	City                  string          `json:"city"`
	IsDealer              bool            `json:"is_dealer"`
	DealerDiscountPercent decimal.Decimal `json:"dealer_discount_percent"`
}

// CreateCustomer handles POST /admin/customers.
func (h *OrdersHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return
	}
	if req.CompanyName == "" && req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "company name or email is required"})
		return
	}

	customer, err := h.orderSvc.CreateCustomer(r.Context(), orders.CreateCustomerParams{
		CompanyName:           req.CompanyName,
		Email:                 req.Email,
		Address:               req.Address,
		PostalCode:            req.PostalCode,
		City:                  req.City,
		IsDealer:              req.IsDealer,
		DealerDiscountPercent: req.DealerDiscountPercent,
	})
	if err != nil {
		h.logger.Error("creating customer failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerJSON(customer))
}

// GetCustomer handles GET /admin/customers/{id}.
func (h *OrdersHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid customer id"})
		return
	}

	customer, err := h.orderSvc.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrCustomerNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "customer not found"})
			return
		}
		h.logger.Error("getting customer failed", "customer_id", id.String(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCustomerJSON(customer))
}
