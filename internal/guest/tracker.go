// Package guest tracks a handful of invoices for visitors without an
// account. Everything lives in a browser cookie; nothing is stored on the
// server.
package guest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerflow/internal/validation"
	"ledgerflow/models"
)

const (
	CookieName = "ledgerflow_guest"
	Limit      = 3
)

var (
	ErrLimitReached = errors.New("guest invoice limit reached")
	ErrNotFound     = errors.New("guest invoice not found")
	ErrCorrupt      = errors.New("guest tracker cookie is corrupt")
)

type Invoice struct {
	ID            string               `json:"id"`
	Number        string               `json:"number"`
	CustomerName  string               `json:"customerName"`
	CustomerEmail string               `json:"customerEmail,omitempty"`
	Description   string               `json:"description"`
	Amount        decimal.Decimal      `json:"amount"`
	Status        models.InvoiceStatus `json:"status"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type Input struct {
	CustomerName  string          `json:"customerName" validate:"required,max=255"`
	CustomerEmail string          `json:"customerEmail" validate:"omitempty,email"`
	Description   string          `json:"description" validate:"required,max=500"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       string          `json:"dueDate"`
}

// Tracker is the cookie payload. Count only ever grows, so removing an
// invoice does not free a slot.
type Tracker struct {
	Count    int       `json:"count"`
	Invoices []Invoice `json:"invoices"`
}

// Decode reads a cookie value. An empty value is a fresh tracker.
func Decode(value string) (Tracker, error) {
	var t Tracker
	if strings.TrimSpace(value) == "" {
		return t, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Tracker{}, ErrCorrupt
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tracker{}, ErrCorrupt
	}
	if t.Count < len(t.Invoices) {
		t.Count = len(t.Invoices)
	}
	return t, nil
}

func (t Tracker) Encode() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (t Tracker) Remaining() int {
	if n := Limit - t.Count; n > 0 {
		return n
	}
	return 0
}

// Add validates the input and appends a DRAFT invoice.
func (t *Tracker) Add(in Input, now time.Time) (Invoice, error) {
	if t.Count >= Limit {
		return Invoice{}, ErrLimitReached
	}
	verr := validation.Struct(in)
	if !in.Amount.IsPositive() {
		verr.Add("amount", "must be greater than 0")
	}
	due, err := models.ParseOptionalDate(in.DueDate)
	if err != nil {
		verr.Add("dueDate", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return Invoice{}, err
	}

	t.Count++
	inv := Invoice{
		ID:            uuid.NewString(),
		Number:        fmt.Sprintf("GUEST-%03d", t.Count),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount.Round(2),
		Status:        models.InvoiceStatusDraft,
		DueDate:       due,
		CreatedAt:     now,
	}
	t.Invoices = append(t.Invoices, inv)
	return inv, nil
}

func (t *Tracker) Remove(id string) error {
	for i, inv := range t.Invoices {
		if inv.ID == id {
			t.Invoices = append(t.Invoices[:i], t.Invoices[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
