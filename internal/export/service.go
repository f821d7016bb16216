// Package export posts mapped order bookings to the export store and renders
// them for download. Posting is the single fail-closed boundary of the
// pipeline: a batch that does not balance is never stored.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinkercommerce/accounting/internal/booking"
)

var (
	// ErrNotFound is returned when no export exists for an order.
	ErrNotFound = errors.New("booking export not found")

	// ErrMissingOrderID is returned when an order without an ID is posted;
	// without an ID the at-most-once guarantee cannot hold.
	ErrMissingOrderID = errors.New("order has no id")
)

// Export is one stored booking export: the batches generated for a single
// order, frozen at post time.
type Export struct {
	ID        uuid.UUID
	OrderID   string
	Bookings  booking.OrderBookings
	CreatedAt time.Time
}

// Service provides business logic for posting and retrieving booking exports.
type Service struct {
	pool   *pgxpool.Pool
	mapper *booking.Mapper
	logger *slog.Logger
}

// NewService creates a new export service. A nil mapper gets the default
// chart and cost estimator.
func NewService(pool *pgxpool.Pool, mapper *booking.Mapper, logger *slog.Logger) *Service {
	if mapper == nil {
		mapper = booking.NewMapper(nil, nil, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pool:   pool,
		mapper: mapper,
		logger: logger,
	}
}

// Preview maps an order to its booking batches without storing anything.
func (s *Service) Preview(order booking.Order, customer booking.Customer) booking.OrderBookings {
	return s.mapper.MapOrder(order, customer)
}

// PostOrder maps an order, validates both batches, and stores the result.
//
// Validation is fail-closed: an out-of-balance batch aborts the post and
// nothing is written. Storage is at-most-once per order: a repeated post is
// a no-op that returns the export stored by the first post, so the books
// can never receive the same order twice.
func (s *Service) PostOrder(ctx context.Context, order booking.Order, customer booking.Customer) (Export, error) {
	if order.ID == "" {
		return Export{}, ErrMissingOrderID
	}

	bookings := s.mapper.MapOrder(order, customer)

	for _, batch := range []booking.Batch{bookings.Verkoop, bookings.CogsVoorraad} {
		if err := booking.CheckBalance(batch); err != nil {
			return Export{}, fmt.Errorf("refusing to post order %s: %w", order.ID, err)
		}
	}

	payload, err := json.Marshal(bookings)
	if err != nil {
		return Export{}, fmt.Errorf("encoding bookings for order %s: %w", order.ID, err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO booking_exports (id, order_id, bookings)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING`,
		uuid.New(), order.ID, payload,
	)
	if err != nil {
		return Export{}, fmt.Errorf("storing booking export for order %s: %w", order.ID, err)
	}

	if tag.RowsAffected() == 0 {
		s.logger.Info("order already posted, returning stored export",
			slog.String("order_id", order.ID),
		)
	} else {
		s.logger.Info("order posted to bookkeeping",
			slog.String("order_id", order.ID),
			slog.Int("sales_rules", len(bookings.Verkoop.Regels)),
		)
	}

	return s.Get(ctx, order.ID)
}

// Get returns the stored export for an order, or ErrNotFound.
func (s *Service) Get(ctx context.Context, orderID string) (Export, error) {
	var (
		exp     Export
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, bookings, created_at
		FROM booking_exports
		WHERE order_id = $1`,
		orderID,
	).Scan(&exp.ID, &exp.OrderID, &payload, &exp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Export{}, ErrNotFound
		}
		return Export{}, fmt.Errorf("getting export for order %s: %w", orderID, err)
	}

	if err := json.Unmarshal(payload, &exp.Bookings); err != nil {
		return Export{}, fmt.Errorf("decoding stored bookings for order %s: %w", orderID, err)
	}
	return exp, nil
}

// List returns paginated exports, newest first, plus the total count.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]Export, int64, error) {
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
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM booking_exports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting exports: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, bookings, created_at
		FROM booking_exports
		ORDER BY created_at DESC, order_id
		LIMIT $1 OFFSET $2`,
		pageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		var (
			exp     Export
			payload []byte
		)
		if err := rows.Scan(&exp.ID, &exp.OrderID, &payload, &exp.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning export row: %w", err)
		}
		if err := json.Unmarshal(payload, &exp.Bookings); err != nil {
			return nil, 0, fmt.Errorf("decoding stored bookings for order %s: %w", exp.OrderID, err)
		}
		exports = append(exports, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating export rows: %w", err)
	}

	return exports, total, nil
}
