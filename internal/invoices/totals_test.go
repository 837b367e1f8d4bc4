package invoices

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerflow/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSubtotalIsSumOfLineAmounts(t *testing.T) {
	tests := []struct {
		name  string
		lines []LineInput
		want  string
	}{
		{"empty", nil, "0"},
		{"single", []LineInput{{Description: "a", Quantity: d("3"), UnitPrice: d("19.99")}}, "59.97"},
		{"fractional quantity", []LineInput{{Description: "a", Quantity: d("1.5"), UnitPrice: d("80")}}, "120"},
		{"several", []LineInput{
			{Description: "a", Quantity: d("2"), UnitPrice: d("50")},
			{Description: "b", Quantity: d("1"), UnitPrice: d("25")},
			{Description: "c", Quantity: d("0.3333"), UnitPrice: d("3")},
		}, "126"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subtotal(tt.lines); !got.Equal(d(tt.want)) {
				t.Errorf("Subtotal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDepositAmountStaysWithinSubtotal(t *testing.T) {
	sub := d("125")
	tests := []struct {
		name     string
		requires bool
		typ      models.DepositType
		value    float64
		want     string
	}{
		{"not required", false, models.DepositFixed, 50, "0"},
		{"fixed", true, models.DepositFixed, 40, "40"},
		{"fixed above subtotal", true, models.DepositFixed, 500, "125"},
		{"fixed negative", true, models.DepositFixed, -10, "0"},
		{"percentage", true, models.DepositPercentage, 50, "62.5"},
		{"percentage above 100", true, models.DepositPercentage, 150, "125"},
		{"percentage negative", true, models.DepositPercentage, -20, "0"},
		{"NaN", true, models.DepositFixed, math.NaN(), "0"},
		{"+Inf", true, models.DepositPercentage, math.Inf(1), "0"},
		{"-Inf", true, models.DepositFixed, math.Inf(-1), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DepositAmount(sub, tt.requires, tt.typ, tt.value)
			if !got.Equal(d(tt.want)) {
				t.Errorf("DepositAmount = %s, want %s", got, tt.want)
			}
			if got.IsNegative() || got.GreaterThan(sub) {
				t.Errorf("DepositAmount %s outside [0, %s]", got, sub)
			}
		})
	}
}

func TestComputeTotalsPercentageDeposit(t *testing.T) {
	in := Input{
		RequiresDeposit: true,
		DepositType:     models.DepositPercentage,
		DepositValue:    50,
		Lines: []LineInput{
			{Description: "Labour", Quantity: d("2"), UnitPrice: d("50")},
			{Description: "Parts", Quantity: d("1"), UnitPrice: d("25")},
		},
	}
	got := ComputeTotals(in)
	if !got.Subtotal.Equal(d("125")) || !got.Total.Equal(d("125")) {
		t.Fatalf("subtotal/total = %s/%s, want 125", got.Subtotal, got.Total)
	}
	if !got.DepositAmount.Equal(d("62.5")) {
		t.Fatalf("deposit = %s, want 62.5", got.DepositAmount)
	}
	inv := models.Invoice{Total: got.Total, DepositAmount: got.DepositAmount, RequiresDeposit: true}
	if !inv.RemainingBalance().Equal(d("62.5")) {
		t.Errorf("remaining = %s, want 62.5", inv.RemainingBalance())
	}
	if !inv.ChargeAmount().Equal(d("62.5")) {
		t.Errorf("charge = %s, want the deposit", inv.ChargeAmount())
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		prefix string
		width  int
		value  int64
		ok     bool
	}{
		{"INV-2005", "INV-", 4, 2005, true},
		{"2024-0007", "2024-", 4, 7, true},
		{"42", "", 2, 42, true},
		{"DRAFT", "", 0, 0, false},
	}
	for _, tt := range tests {
		prefix, width, value, ok := parseNumber(tt.in)
		if prefix != tt.prefix || width != tt.width || value != tt.value || ok != tt.ok {
			t.Errorf("parseNumber(%q) = %q %d %d %v", tt.in, prefix, width, value, ok)
		}
	}
	if got := formatNumber("2024-", 4, 8); got != "2024-0008" {
		t.Errorf("formatNumber = %q", got)
	}
}
