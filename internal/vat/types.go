package vat

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category selects which of the three configured percentage rates applies to
// a line item.
type Category string

// Known VAT categories.
const (
	CategoryStandard Category = "standard"
	CategoryReduced  Category = "reduced"
	CategoryZero     Category = "zero"
)

// Setting is one country row from the vat_settings table. Rates are
// percentages, e.g. 21 for the Dutch standard rate.
type Setting struct {
	CountryCode  string
	StandardRate decimal.Decimal
	ReducedRate  decimal.Decimal
	ZeroRate     decimal.Decimal
	Description  string
	IsEUMember   bool
	UpdatedAt    time.Time
}
