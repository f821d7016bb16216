// Package orders provides business logic for customers and orders: the
// records the booking pipeline reads from. Orders are stored with their line
// items; conversion to the booking pipeline's raw shape lives here too, so
// handlers never build booking input by hand.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/booking"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrCustomerNotFound is returned when a customer does not exist.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Customer is a stored customer record.
type Customer struct {
	ID                    uuid.UUID
	CompanyName           string
	Email                 string
	Address               string
	PostalCode            string
	City                  string
	IsDealer              bool
	DealerDiscountPercent decimal.Decimal
	CreatedAt             time.Time
}

// Item is a stored order line. VATRate is nil when the source never recorded
// a rate; the booking normalizer applies the configured fallback policy.
type Item struct {
	ID        uuid.UUID
	Name      string
	SKU       string
	ProductID string
	Price     decimal.Decimal
	VATRate   *decimal.Decimal
	Quantity  int
	Position  int
}

// Order is a stored order with its line items.
type Order struct {
	ID            uuid.UUID
	OrderNumber   int64
	CustomerID    *uuid.UUID
	Items         []Item
	TotalAmount   decimal.Decimal
	PaymentStatus string
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// Service provides business logic for customer and order operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a new orders service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: logger,
	}
}

// CreateCustomerParams contains the input fields for creating a customer.
type CreateCustomerParams struct {
	CompanyName           string
	Email                 string
	Address               string
	PostalCode            string
	City                  string
	IsDealer              bool
	DealerDiscountPercent decimal.Decimal
}

// CreateCustomer creates a new customer.
func (s *Service) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	customer := Customer{
		ID:                    uuid.New(),
		CompanyName:           params.CompanyName,
		Email:                 params.Email,
		Address:               params.Address,
		PostalCode:            params.PostalCode,
		City:                  params.City,
		IsDealer:              params.IsDealer,
		DealerDiscountPercent: params.DealerDiscountPercent,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, company_name, email, address, postal_code, city, is_dealer, dealer_discount_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		customer.ID, customer.CompanyName, customer.Email, customer.Address,
		customer.PostalCode, customer.City, customer.IsDealer, customer.DealerDiscountPercent,
	).Scan(&customer.CreatedAt)
	if err != nil {
		return Customer{}, fmt.Errorf("creating customer: %w", err)
	}

	s.logger.Info("customer created",
		slog.String("customer_id", customer.ID.String()),
		slog.Bool("is_dealer", customer.IsDealer),
	)

	return customer, nil
}

// GetCustomer returns a single customer by ID.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, coalesce(company_name, ''), coalesce(email, ''), coalesce(address, ''),
		       coalesce(postal_code, ''), coalesce(city, ''), is_dealer, dealer_discount_percent, created_at
		FROM customers
		WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.CompanyName, &c.Email, &c.Address, &c.PostalCode, &c.City,
		&c.IsDealer, &c.DealerDiscountPercent, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrCustomerNotFound
		}
		return Customer{}, fmt.Errorf("getting customer %s: %w", id, err)
	}
	return c, nil
}

// CreateItemInput contains the input fields for a single order line.
type CreateItemInput struct {
	Name      string
	SKU       string
	ProductID string
	Price     decimal.Decimal
	VATRate   *decimal.Decimal
	Quantity  int
}

// CreateOrderParams contains the input fields for creating an order with all
// line items atomically. When TotalAmount is nil the total is derived from
// the items.
type CreateOrderParams struct {
	CustomerID    *uuid.UUID
	Items         []CreateItemInput
	TotalAmount   *decimal.Decimal
	PaymentStatus string
	PaidAt        *time.Time
}

// Create creates a new order with its items within a single transaction.
func (s *Service) Create(ctx context.Context, params CreateOrderParams) (Order, error) {
	if params.PaymentStatus == "" {
		params.PaymentStatus = "open"
	}

	total := decimal.Zero
	if params.TotalAmount != nil {
		total = *params.TotalAmount
	} else {
		for _, item := range params.Items {
			qty := item.Quantity
			if qty < 1 {
				qty = 1
			}
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order := Order{
		ID:            uuid.New(),
		CustomerID:    params.CustomerID,
		TotalAmount:   total,
		PaymentStatus: params.PaymentStatus,
		PaidAt:        params.PaidAt,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, total_amount, payment_status, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING order_number, created_at`,
		order.ID, order.CustomerID, order.TotalAmount, order.PaymentStatus, order.PaidAt,
	).Scan(&order.OrderNumber, &order.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("creating order: %w", err)
	}

	order.Items = make([]Item, 0, len(params.Items))
	for i, input := range params.Items {
		item := Item{
			ID:        uuid.New(),
			Name:      input.Name,
			SKU:       input.SKU,
			ProductID: input.ProductID,
			Price:     input.Price,
			VATRate:   input.VATRate,
			Quantity:  input.Quantity,
			Position:  i,
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, name, sku, product_id, price, vat_rate, quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, order.ID, item.Name, item.SKU, item.ProductID,
			item.Price, item.VATRate, item.Quantity, item.Position,
		)
		if err != nil {
			return Order{}, fmt.Errorf("creating order item %q: %w", input.Name, err)
		}
		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("committing order creation: %w", err)
	}

	s.logger.Info("order created",
		slog.String("order_id", order.ID.String()),
		slog.Int64("order_number", order.OrderNumber),
		slog.Int("items", len(order.Items)),
	)

	return order, nil
}

// Get returns a single order with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_number, customer_id, total_amount, payment_status, paid_at, created_at
		FROM orders
		WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.PaymentStatus, &o.PaidAt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("getting order %s: %w", id, err)
	}

	items, err := s.listItems(ctx, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items

	return o, nil
}

func (s *Service) listItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, coalesce(sku, ''), coalesce(product_id, ''), price, vat_rate, quantity, position
		FROM order_items
		WHERE order_id = $1
		ORDER BY position`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.SKU, &item.ProductID,
			&item.Price, &item.VATRate, &item.Quantity, &item.Position); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}
	return items, nil
}

// List returns paginated orders without their items, plus the total count.
// An empty status means no filter.
func (s *Service) List(ctx context.Context, status string, page, pageSize int) ([]Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 250 {
		pageSize = 250
	}
	offset := (page - 1) * pageSize

	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE $1 = '' OR payment_status = $1`,
		status,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_number, customer_id, total_amount, payment_status, paid_at, created_at
		FROM orders
		WHERE $1 = '' OR payment_status = $1
		ORDER BY order_number DESC
		LIMIT $2 OFFSET $3`,
		status, pageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount,
			&o.PaymentStatus, &o.PaidAt, &o.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating order rows: %w", err)
	}

	return orders, total, nil
}

// MarkPaid sets an order's payment status to paid and records the payment
// time. Marking an already-paid order again keeps the original paid_at.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (Order, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'paid', paid_at = coalesce(paid_at, now())
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return Order{}, fmt.Errorf("marking order %s paid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}

	s.logger.Info("order marked paid", slog.String("order_id", id.String()))

	return s.Get(ctx, id)
}

// BookingInput converts a stored order into the booking pipeline's raw
// shape. Items without a stored VAT rate keep a nil rate so the normalizer's
// fallback policy decides.
func BookingInput(o Order) booking.RawOrder {
	raw := booking.RawOrder{
		ID:            o.ID.String(),
		OrderNumber:   strconv.FormatInt(o.OrderNumber, 10),
		PaymentStatus: o.PaymentStatus,
		Items:         make([]booking.RawItem, 0, len(o.Items)),
	}
	if o.CustomerID != nil {
		raw.CustomerID = o.CustomerID.String()
	}

	total := o.TotalAmount
	raw.TotalAmount = &total

	createdAt := o.CreatedAt.Format(time.RFC3339)
	raw.CreatedAtSnake = &createdAt
	if o.PaidAt != nil {
		paidAt := o.PaidAt.Format(time.RFC3339)
		raw.PaidAtSnake = &paidAt
	}

	for _, item := range o.Items {
		qty := item.Quantity
		price := item.Price
		raw.Items = append(raw.Items, booking.RawItem{
			Name:      item.Name,
			Price:     &price,
			VATRate:   item.VATRate,
			SKU:       item.SKU,
			ProductID: item.ProductID,
			Quantity:  &qty,
		})
	}

	return raw
}

// BookingCustomer converts a stored customer into the booking label shape.
func BookingCustomer(c Customer) booking.Customer {
	return booking.Customer{
		ID:          c.ID.String(),
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Address:     c.Address,
		PostalCode:  c.PostalCode,
		City:        c.City,
	}
}
