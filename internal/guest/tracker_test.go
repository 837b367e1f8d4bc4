package guest

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerflow/internal/validation"
)

func input(name string) Input {
	return Input{CustomerName: name, Description: "Lawn mowing", Amount: decimal.NewFromInt(40)}
}

func TestTrackerCapsAtThree(t *testing.T) {
	var tr Tracker
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"Ann", "Bob", "Cat"} {
		inv, err := tr.Add(input(name), now)
		if err != nil {
			t.Fatalf("Add #%d: %v", i+1, err)
		}
		if inv.Status != "DRAFT" {
			t.Errorf("status = %s", inv.Status)
		}
	}
	if tr.Remaining() != 0 {
		t.Errorf("Remaining = %d", tr.Remaining())
	}
	if _, err := tr.Add(input("Dan"), now); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("fourth Add: got %v", err)
	}

	// removing does not free a slot
	if err := tr.Remove(tr.Invoices[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := tr.Add(input("Dan"), now); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("Add after Remove: got %v", err)
	}
	if err := tr.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove missing: got %v", err)
	}
}

func TestTrackerCookieRoundTrip(t *testing.T) {
	var tr Tracker
	if _, err := tr.Add(input("Ann"), time.Now().UTC()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	value, err := tr.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Count != 1 || len(got.Invoices) != 1 || got.Invoices[0].Number != "GUEST-001" {
		t.Errorf("decoded = %+v", got)
	}
	if !got.Invoices[0].Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("amount = %s", got.Invoices[0].Amount)
	}
}

func TestDecode(t *testing.T) {
	if tr, err := Decode(""); err != nil || tr.Count != 0 {
		t.Errorf("empty cookie: %+v %v", tr, err)
	}
	if _, err := Decode("%%%"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("bad base64: got %v", err)
	}
	if _, err := Decode("bm90IGpzb24"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("bad json: got %v", err)
	}
}

func TestAddValidates(t *testing.T) {
	var tr Tracker
	_, err := tr.Add(Input{CustomerEmail: "nope", Amount: decimal.Zero, DueDate: "tomorrow"}, time.Now())
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("got %v", err)
	}
	for _, f := range []string{"customerName", "customerEmail", "description", "amount", "dueDate"} {
		if verr.Fields[f] == "" {
			t.Errorf("missing %s error", f)
		}
	}
	if tr.Count != 0 {
		t.Errorf("failed Add consumed a slot")
	}
}
