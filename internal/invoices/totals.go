package invoices

import (
	"math"

	"github.com/shopspring/decimal"

	"ledgerflow/models"
)

var hundred = decimal.NewFromInt(100)

// LineAmount is quantity × unit price rounded to cents.
func LineAmount(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Round(2)
}

// Subtotal sums the line amounts.
func Subtotal(lines []LineInput) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineAmount(l.Quantity, l.UnitPrice))
	}
	return sum
}

// DepositAmount returns the deposit owed up front, always within
// [0, subtotal]. Non-finite values count as zero.
func DepositAmount(subtotal decimal.Decimal, requires bool, typ models.DepositType, value float64) decimal.Decimal {
	if !requires {
		return decimal.Zero
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	v := decimal.NewFromFloat(value)

	var amount decimal.Decimal
	switch typ {
	case models.DepositPercentage:
		amount = subtotal.Mul(v).Div(hundred)
	default:
		amount = v
	}
	amount = amount.Round(2)

	if amount.IsNegative() {
		return decimal.Zero
	}
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// Totals are the computed money fields of an invoice.
type Totals struct {
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	DepositAmount decimal.Decimal
}

func ComputeTotals(in Input) Totals {
	sub := Subtotal(in.Lines)
	return Totals{
		Subtotal:      sub,
		TaxTotal:      decimal.Zero,
		Total:         sub,
		DepositAmount: DepositAmount(sub, in.RequiresDeposit, in.DepositType, in.DepositValue),
	}
}
