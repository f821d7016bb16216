package booking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the exclusive bound on debit/credit drift: a full cent
// of difference is already out of balance, only sub-cent drift passes.
var balanceTolerance = decimal.NewFromFloat(0.01)

// ImbalanceError reports a batch whose debit and credit totals differ by
// 0.01 or more.
type ImbalanceError struct {
	Omschrijving string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("booking %q out of balance: debit %s, credit %s",
		e.Omschrijving, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// ValidateBalance reports whether the batch balances: the debit and credit
// totals differ by strictly less than 0.01. A rule with a malformed amount or
// an unknown debit/credit marker makes the batch invalid.
func ValidateBalance(b Batch) bool {
	return CheckBalance(b) == nil
}

// CheckBalance validates the batch and returns a descriptive error when it
// does not balance or contains a malformed rule.
func CheckBalance(b Batch) error {
	debit := decimal.Zero
	credit := decimal.Zero

	for i, r := range b.Regels {
		amount, err := decimal.NewFromString(r.Bedrag)
		if err != nil {
			return fmt.Errorf("booking %q rule %d: invalid amount %q", b.Omschrijving, i, r.Bedrag)
		}
		switch r.DebetCredit {
		case Debit:
			debit = debit.Add(amount)
		case Credit:
			credit = credit.Add(amount)
		default:
			return fmt.Errorf("booking %q rule %d: invalid debit/credit marker %q", b.Omschrijving, i, r.DebetCredit)
		}
	}

	if debit.Sub(credit).Abs().GreaterThanOrEqual(balanceTolerance) {
		return &ImbalanceError{Omschrijving: b.Omschrijving, Debit: debit, Credit: credit}
	}
	return nil
}
