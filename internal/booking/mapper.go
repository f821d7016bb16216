package booking

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Mapper converts normalized orders into booking batches. The chart of
// accounts and the cost estimator are injected so the mapper itself stays a
// pure transformation.
type Mapper struct {
	chart     ChartOfAccounts
	estimator CostEstimator
	logger    *slog.Logger
}

// NewMapper creates a booking mapper. A nil chart resolves every role to the
// empty account code; a nil estimator uses the 50%-of-revenue default.
func NewMapper(chart ChartOfAccounts, estimator CostEstimator, logger *slog.Logger) *Mapper {
	if chart == nil {
		chart = StaticChart{}
	}
	if estimator == nil {
		estimator = DefaultCostEstimator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		chart:     chart,
		estimator: estimator,
		logger:    logger,
	}
}

// rateTotal accumulates the VAT-exclusive revenue and VAT amount booked at
// one distinct rate. Rates are tracked in first-seen order so mapping stays
// deterministic.
type rateTotal struct {
	rate decimal.Decimal
	excl decimal.Decimal
	vat  decimal.Decimal
}

// MapRawOrder is the flexible entry point for heterogeneous input: it
// normalizes the raw order first, then maps it. This is the variant safe for
// production order shapes.
func (m *Mapper) MapRawOrder(raw RawOrder, customer Customer, opts NormalizeOptions) OrderBookings {
	return m.MapOrder(Normalize(raw, opts), customer)
}

// MapOrder converts an already-normalized order into the two booking
// batches: the sales entry (debtor debit, revenue credit, one VAT-payable
// credit per distinct rate) and the COGS/inventory entry.
//
// Item prices are VAT-inclusive unit prices. Per item the VAT-exclusive
// amount is price / (1 + rate/100) and the VAT amount the remainder, both
// multiplied by quantity. Amounts only round when a booking rule is emitted.
// The VAT lines round independently, so the revenue credit is the rounded
// item total minus the rounded VAT lines: the credit side then adds up to
// the item total exactly, however many rates the order mixes.
func (m *Mapper) MapOrder(order Order, customer Customer) OrderBookings {
	ref := orderRef(order)
	datum := order.CreatedAt.Format("2006-01-02")

	totalIncl := decimal.Zero
	totalExcl := decimal.Zero
	var perRate []*rateTotal
	rateIndex := make(map[string]*rateTotal)

	for _, item := range order.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		lineIncl := item.Price.Mul(qty)
		divisor := one.Add(item.VATRate.Div(hundred))
		lineExcl := lineIncl.Div(divisor)
		lineVAT := lineIncl.Sub(lineExcl)

		totalIncl = totalIncl.Add(lineIncl)
		totalExcl = totalExcl.Add(lineExcl)

		key := item.VATRate.String()
		rt, ok := rateIndex[key]
		if !ok {
			rt = &rateTotal{rate: item.VATRate}
			rateIndex[key] = rt
			perRate = append(perRate, rt)
		}
		rt.excl = rt.excl.Add(lineExcl)
		rt.vat = rt.vat.Add(lineVAT)
	}

	// One VAT-payable line per distinct rate present in the order, each
	// labeled with its own rate. Rates whose accumulated VAT rounds to zero
	// (the 0% rate in particular) produce no line.
	vatSum := decimal.Zero
	var vatRules []Rule
	for _, rt := range perRate {
		vatAmount := rt.vat.Round(2)
		if vatAmount.IsZero() {
			continue
		}
		vatSum = vatSum.Add(vatAmount)
		vatRules = append(vatRules, Rule{
			Rekening:     m.chart.Resolve(RoleVATPayable),
			Omschrijving: fmt.Sprintf("BTW %s%% order %s", rt.rate.String(), ref),
			Bedrag:       vatAmount.StringFixed(2),
			DebetCredit:  Credit,
			BTWCode:      vatCode(rt.rate),
		})
	}

	// Revenue absorbs the cent-level drift of the independently rounded VAT
	// lines. A genuine mismatch between the order total and its items is not
	// absorbed; that still fails balance validation downstream.
	revenue := totalIncl.Round(2).Sub(vatSum)

	verkoop := Batch{
		Omschrijving: fmt.Sprintf("Verkoop order %s", ref),
		Datum:        datum,
		Regels: []Rule{
			{
				Rekening:     m.chart.Resolve(RoleDebtors),
				Omschrijving: fmt.Sprintf("Debiteuren %s", customer.Label()),
				Bedrag:       order.TotalAmount.StringFixed(2),
				DebetCredit:  Debit,
			},
			{
				Rekening:     m.chart.Resolve(RoleRevenue),
				Omschrijving: fmt.Sprintf("Omzet order %s", ref),
				Bedrag:       revenue.StringFixed(2),
				DebetCredit:  Credit,
			},
		},
	}
	verkoop.Regels = append(verkoop.Regels, vatRules...)

	cost := m.estimator.EstimateCost(revenue)
	cogs := Batch{
		Omschrijving: fmt.Sprintf("Kostprijs verkopen order %s", ref),
		Datum:        datum,
		Regels: []Rule{
			{
				Rekening:     m.chart.Resolve(RoleCOGS),
				Omschrijving: fmt.Sprintf("Kostprijs verkopen order %s", ref),
				Bedrag:       cost.StringFixed(2),
				DebetCredit:  Debit,
			},
			{
				Rekening:     m.chart.Resolve(RoleInventory),
				Omschrijving: fmt.Sprintf("Voorraad order %s", ref),
				Bedrag:       cost.StringFixed(2),
				DebetCredit:  Credit,
			},
		},
	}

	m.logger.Debug("order mapped to bookings",
		"order", ref,
		"total", order.TotalAmount.StringFixed(2),
		"total_excl_vat", totalExcl.StringFixed(2),
		"vat_rates", len(perRate),
	)

	return OrderBookings{Verkoop: verkoop, CogsVoorraad: cogs}
}

func orderRef(order Order) string {
	if order.OrderNumber != "" {
		return order.OrderNumber
	}
	return order.ID
}

// vatCode maps a rate to its e-Boekhouden sales VAT code. Unknown rates get
// the empty code so the import flags them instead of misclassifying.
func vatCode(rate decimal.Decimal) string {
	switch {
	case rate.Equal(decimal.NewFromInt(21)):
		return "HOOG_VERK_21"
	case rate.Equal(decimal.NewFromInt(9)):
		return "LAAG_VERK_9"
	case rate.IsZero():
		return "GEEN"
	default:
		return ""
	}
}
