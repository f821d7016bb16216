package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/klinkercommerce/accounting/internal/booking"
)

// csvHeader is the column layout of the booking export file. One row per
// booking rule, with the batch description and date repeated per row so the
// file imports without a separate header record.
var csvHeader = []string{
	"boeking", "datum", "rekening", "omschrijving", "bedrag", "debet_credit", "btw_code",
}

// WriteCSV writes the booking batches of one or more orders as CSV rows.
func WriteCSV(w io.Writer, orders ...booking.OrderBookings) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, ob := range orders {
		for _, batch := range []booking.Batch{ob.Verkoop, ob.CogsVoorraad} {
			for _, rule := range batch.Regels {
				record := []string{
					batch.Omschrijving,
					batch.Datum,
					rule.Rekening,
					rule.Omschrijving,
					rule.Bedrag,
					rule.DebetCredit,
					rule.BTWCode,
				}
				if err := cw.Write(record); err != nil {
					return fmt.Errorf("writing csv row: %w", err)
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
