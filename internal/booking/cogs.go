package booking

import "github.com/shopspring/decimal"

// CostEstimator estimates the cost of goods sold for an order, given its
// VAT-exclusive revenue. Real per-SKU cost data can replace the default
// heuristic without touching the mapper.
type CostEstimator interface {
	EstimateCost(revenueExclVAT decimal.Decimal) decimal.Decimal
}

// RevenueShareEstimator books cost of goods as a fixed fraction of
// VAT-exclusive revenue. No real unit cost data exists yet, so the books
// carry an estimate rather than nothing.
type RevenueShareEstimator struct {
	Share decimal.Decimal
}

// EstimateCost returns revenue multiplied by the share, rounded to cents.
func (e RevenueShareEstimator) EstimateCost(revenueExclVAT decimal.Decimal) decimal.Decimal {
	return revenueExclVAT.Mul(e.Share).Round(2)
}

// DefaultCostEstimator returns the 50%-of-revenue heuristic.
func DefaultCostEstimator() CostEstimator {
	return RevenueShareEstimator{Share: decimal.NewFromFloat(0.5)}
}
