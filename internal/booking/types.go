// Package booking converts completed orders into balanced double-entry
// booking batches for export to e-Boekhouden. It owns order normalization,
// the booking mapper, and balance validation.
//
// Every function in this package is a deterministic pure transformation:
// identical input produces byte-identical output, so re-mapping the same
// order is always safe.
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debit/credit markers used on booking rules.
const (
	Debit  = "D"
	Credit = "C"
)

// Rule is a single booking line in the e-Boekhouden mutation format.
// Bedrag is always formatted to exactly 2 decimal places.
type Rule struct {
	Rekening     string `json:"Rekening"`
	Omschrijving string `json:"Omschrijving"`
	Bedrag       string `json:"Bedrag"`
	DebetCredit  string `json:"DebetCredit"`
	BTWCode      string `json:"BTWCode"`
}

// Batch is one balanced bookkeeping transaction: the sum of its debit rules
// equals the sum of its credit rules within rounding tolerance.
type Batch struct {
	Omschrijving string `json:"omschrijving"`
	Datum        string `json:"datum"` // YYYY-MM-DD
	Regels       []Rule `json:"regels"`
}

// OrderBookings holds the two batches generated for one order: the sales
// entry and the cost-of-goods-sold/inventory entry. Instances are built
// fresh per order and never mutated afterwards.
type OrderBookings struct {
	Verkoop      Batch `json:"verkoop"`
	CogsVoorraad Batch `json:"cogsVoorraad"`
}

// Item is a normalized order line. Price is the VAT-inclusive unit price.
type Item struct {
	Name      string
	Price     decimal.Decimal
	VATRate   decimal.Decimal
	SKU       string
	ProductID string
	Quantity  int
}

// Order is the canonical order shape the mapper operates on.
type Order struct {
	ID            string
	OrderNumber   string
	CustomerID    string
	Items         []Item
	TotalAmount   decimal.Decimal
	PaymentStatus string
	CreatedAt     time.Time
}

// Customer supplies descriptive text for booking line labels. The booking
// core never mutates it.
type Customer struct {
	ID          string
	CompanyName string
	Email       string
	Address     string
	PostalCode  string
	City        string
}

// Label returns the best human-readable identifier for booking descriptions.
func (c Customer) Label() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	if c.Email != "" {
		return c.Email
	}
	return c.ID
}
