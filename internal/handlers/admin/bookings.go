package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/klinkercommerce/accounting/internal/booking"
	"github.com/klinkercommerce/accounting/internal/export"
	"github.com/klinkercommerce/accounting/internal/services/orders"
)

// BookingsHandler exposes the booking pipeline: previewing an order's
// batches, posting them to the export store, and downloading exports.
type BookingsHandler struct {
	orderSvc  *orders.Service
	exportSvc *export.Service
	opts      booking.NormalizeOptions
	logger    *slog.Logger
}

// NewBookingsHandler creates a new bookings handler. The normalize options
// carry the configured missing-rate policy and resolver.
func NewBookingsHandler(orderSvc *orders.Service, exportSvc *export.Service, opts booking.NormalizeOptions, logger *slog.Logger) *BookingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingsHandler{
		orderSvc:  orderSvc,
		exportSvc: exportSvc,
		opts:      opts,
		logger:    logger,
	}
}

// RegisterRoutes registers the booking admin routes on the given mux.
func (h *BookingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/orders/{id}/bookings", h.Preview)
	mux.HandleFunc("POST /admin/orders/{id}/bookings", h.Post)
	mux.HandleFunc("GET /admin/exports", h.ListExports)
	mux.HandleFunc("GET /admin/exports/csv", h.DownloadCSV)
	mux.HandleFunc("GET /admin/exports/{order_id}", h.GetExport)
}

// loadBookingInput fetches an order plus its customer and converts both to
// the booking shapes. The customer may be absent; bookings then label the
// debtor line with the order's customer ID.
func (h *BookingsHandler) loadBookingInput(r *http.Request) (booking.Order, booking.Customer, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return booking.Order{}, booking.Customer{}, errInvalidID
	}

	order, err := h.orderSvc.Get(r.Context(), id)
	if err != nil {
		return booking.Order{}, booking.Customer{}, err
	}

	var customer booking.Customer
	if order.CustomerID != nil {
		c, err := h.orderSvc.GetCustomer(r.Context(), *order.CustomerID)
		if err != nil && !errors.Is(err, orders.ErrCustomerNotFound) {
			return booking.Order{}, booking.Customer{}, err
		}
		if err == nil {
			customer = orders.BookingCustomer(c)
		} else {
			customer.ID = order.CustomerID.String()
		}
	}

	return booking.Normalize(orders.BookingInput(order), h.opts), customer, nil
}

var errInvalidID = errors.New("invalid order id")

func (h *BookingsHandler) writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errInvalidID):
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid order id"})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorJSON{Error: "order not found"})
	default:
		h.logger.Error("loading order for booking failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
	}
}

// Preview handles GET /admin/orders/{id}/bookings. It maps the order without
// storing anything.
func (h *BookingsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	order, customer, err := h.loadBookingInput(r)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.exportSvc.Preview(order, customer))
}

type postResponse struct {
	OrderID   string                `json:"order_id"`
	Bookings  booking.OrderBookings `json:"bookings"`
	CreatedAt time.Time             `json:"created_at"`
}

// Post handles POST /admin/orders/{id}/bookings. Only paid orders can be
// posted; posting twice returns the stored export unchanged.
func (h *BookingsHandler) Post(w http.ResponseWriter, r *http.Request) {
	order, customer, err := h.loadBookingInput(r)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}

	if order.PaymentStatus != "paid" {
		writeJSON(w, http.StatusConflict, errorJSON{Error: "order is not paid"})
		return
	}

	exp, err := h.exportSvc.PostOrder(r.Context(), order, customer)
	if err != nil {
		var imbalance *booking.ImbalanceError
		if errors.As(err, &imbalance) {
			writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: imbalance.Error()})
			return
		}
		h.logger.Error("posting order failed", "order_id", order.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, postResponse{
		OrderID:   exp.OrderID,
		Bookings:  exp.Bookings,
		CreatedAt: exp.CreatedAt,
	})
}

type exportJSON struct {
	OrderID   string                `json:"order_id"`
	Bookings  booking.OrderBookings `json:"bookings"`
	CreatedAt time.Time             `json:"created_at"`
}

// ListExports handles GET /admin/exports.
func (h *BookingsHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	exports, total, err := h.exportSvc.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("listing exports failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	data := make([]exportJSON, 0, len(exports))
	for _, exp := range exports {
		data = append(data, exportJSON{
			OrderID:   exp.OrderID,
			Bookings:  exp.Bookings,
			CreatedAt: exp.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:       data,
		Page:       page,
		TotalPages: totalPages(total, pageSize),
		Total:      total,
	})
}

// GetExport handles GET /admin/exports/{order_id}.
func (h *BookingsHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	exp, err := h.exportSvc.Get(r.Context(), r.PathValue("order_id"))
	if err != nil {
		if errors.Is(err, export.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "booking export not found"})
			return
		}
		h.logger.Error("getting export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, exportJSON{
		OrderID:   exp.OrderID,
		Bookings:  exp.Bookings,
		CreatedAt: exp.CreatedAt,
	})
}

// DownloadCSV handles GET /admin/exports/csv. It streams every stored export
// as one CSV file, paging through the store.
func (h *BookingsHandler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="boekingen.csv"`)

	var all []booking.OrderBookings
	page := 1
	for {
		exports, _, err := h.exportSvc.List(r.Context(), page, 250)
		if err != nil {
			h.logger.Error("listing exports for CSV failed", "error", err)
			http.Error(w, "Failed to export bookings", http.StatusInternalServerError)
			return
		}
		for _, exp := range exports {
			all = append(all, exp.Bookings)
		}
		if len(exports) < 250 {
			break
		}
		page++
	}

	if err := export.WriteCSV(w, all...); err != nil {
		h.logger.Error("writing bookings CSV failed", "error", err)
	}
}

func pageParams(r *http.Request) (page, pageSize int) {
	q := r.URL.Query()
	page = atoiDefault(q.Get("page"), 1)
	pageSize = atoiDefault(q.Get("page_size"), 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}
