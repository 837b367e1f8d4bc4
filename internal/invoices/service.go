// Package invoices owns invoice CRUD, totals, numbering and manual
// payments. Every operation is scoped to the caller's workspace.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/validation"
	"ledgerflow/models"
)

var (
	ErrNotFound      = errors.New("invoice not found")
	ErrInvalidStatus = errors.New("invalid invoice status")
)

type LineInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type Input struct {
	CustomerID      string             `json:"customerId" validate:"required"`
	Currency        string             `json:"currency" validate:"omitempty,len=3"`
	IssueDate       string             `json:"issueDate"`
	DueDate         string             `json:"dueDate"`
	RequiresDeposit bool               `json:"requiresDeposit"`
	DepositType     models.DepositType `json:"depositType" validate:"omitempty,oneof=FIXED PERCENTAGE"`
	DepositValue    float64            `json:"depositValue"`
	DepositDueDate  string             `json:"depositDueDate"`
	Notes           string             `json:"notes" validate:"max=5000"`
	Lines           []LineInput        `json:"lines" validate:"dive"`
}

type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"max=1000"`
	PaidAt string          `json:"paidAt"`
}

type ListFilter struct {
	Status     models.InvoiceStatus
	CustomerID string
	Number     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// dates holds the parsed date fields of an Input.
type dates struct {
	issue      time.Time
	due        *time.Time
	depositDue *time.Time
}

func (s *Service) validate(ctx context.Context, ac auth.Context, in Input) (dates, error) {
	var d dates
	verr := validation.Struct(in)

	for i, l := range in.Lines {
		if !l.Quantity.IsPositive() {
			verr.Add(fmt.Sprintf("lines[%d].quantity", i), "must be greater than 0")
		}
		if l.UnitPrice.IsNegative() {
			verr.Add(fmt.Sprintf("lines[%d].unitPrice", i), "must not be negative")
		}
	}
	if in.RequiresDeposit && in.DepositType == "" {
		verr.Add("depositType", "is required when a deposit is requested")
	}

	d.issue = s.now()
	if strings.TrimSpace(in.IssueDate) != "" {
		t, err := models.ParseDate(in.IssueDate)
		if err != nil {
			verr.Add("issueDate", err.Error())
		}
		d.issue = t
	}
	var err error
	if d.due, err = models.ParseOptionalDate(in.DueDate); err != nil {
		verr.Add("dueDate", err.Error())
	}
	if d.depositDue, err = models.ParseOptionalDate(in.DepositDueDate); err != nil {
		verr.Add("depositDueDate", err.Error())
	}

	if in.CustomerID != "" {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.Customer{}).
			Where("id = ? AND workspace_id = ?", in.CustomerID, ac.WorkspaceID).
			Count(&n).Error
		if err != nil {
			return d, err
		}
		if n == 0 {
			verr.Add("customerId", "unknown customer")
		}
	}
	return d, verr.OrNil()
}

func buildLines(invoiceID string, in []LineInput) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(in))
	for i, l := range in {
		lines = append(lines, models.InvoiceLine{
			ID:          uuid.NewString(),
			InvoiceID:   invoiceID,
			Description: strings.TrimSpace(l.Description),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      LineAmount(l.Quantity, l.UnitPrice),
			SortOrder:   i,
		})
	}
	return lines
}

func applyInput(inv *models.Invoice, in Input, d dates) {
	t := ComputeTotals(in)
	inv.CustomerID = in.CustomerID
	inv.Currency = strings.ToUpper(in.Currency)
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	inv.IssueDate = d.issue
	inv.DueDate = d.due
	inv.RequiresDeposit = in.RequiresDeposit
	inv.DepositType = ""
	inv.DepositValue = decimal.Zero
	inv.DepositDueDate = nil
	if in.RequiresDeposit {
		inv.DepositType = in.DepositType
		inv.DepositValue = decimal.NewFromFloat(finite(in.DepositValue)).Round(2)
		inv.DepositDueDate = d.depositDue
	}
	inv.Notes = in.Notes
	inv.Subtotal = t.Subtotal
	inv.TaxTotal = t.TaxTotal
	inv.Total = t.Total
	inv.DepositAmount = t.DepositAmount
}

// Create inserts a DRAFT invoice with the next number in the workspace.
func (s *Service) Create(ctx context.Context, ac auth.Context, in Input) (*models.Invoice, error) {
	d, err := s.validate(ctx, ac, in)
	if err != nil {
		return nil, err
	}

	inv := models.Invoice{
		ID:          uuid.NewString(),
		WorkspaceID: ac.WorkspaceID,
		Status:      models.InvoiceStatusDraft,
		AmountPaid:  decimal.Zero,
	}
	applyInput(&inv, in, d)
	lines := buildLines(inv.ID, in.Lines)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextNumber(tx, ac.WorkspaceID)
		if err != nil {
			return err
		}
		inv.Number = number
		if err := tx.Omit("Lines", "Customer", "Workspace", "Payments").Create(&inv).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("insert lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ac, inv.ID)
}

// Update rewrites the header and replaces every line in one transaction.
func (s *Service) Update(ctx context.Context, ac auth.Context, id string, in Input) (*models.Invoice, error) {
	d, err := s.validate(ctx, ac, in)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).Take(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		applyInput(&inv, in, d)
		if err := tx.Omit("Lines", "Customer", "Workspace", "Payments").Save(&inv).Error; err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if lines := buildLines(inv.ID, in.Lines); len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("insert lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ac, id)
}

// Delete removes the invoice together with its lines, payments and events.
func (s *Service) Delete(ctx context.Context, ac auth.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Invoice{}).Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		for _, dep := range []any{&models.InvoiceEvent{}, &models.Payment{}, &models.InvoiceLine{}} {
			if err := tx.Where("invoice_id = ?", id).Delete(dep).Error; err != nil {
				return fmt.Errorf("delete %T: %w", dep, err)
			}
		}
		return tx.Where("id = ?", id).Delete(&models.Invoice{}).Error
	})
}

func (s *Service) Get(ctx context.Context, ac auth.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Customer").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("processed_at") }).
		Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).
		Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// GetPublic loads an invoice by id alone, with its workspace, for the
// customer-facing page.
func (s *Service) GetPublic(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Customer").
		Preload("Workspace").
		Where("id = ?", id).
		Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) List(ctx context.Context, ac auth.Context, f ListFilter) ([]models.Invoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("workspace_id = ?", ac.WorkspaceID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if v := strings.TrimSpace(f.Number); v != "" {
		q = q.Where("number LIKE ?", "%"+v+"%")
	}
	if f.From != nil {
		q = q.Where("issue_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("issue_date <= ?", *f.To)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.Invoice, 0)
	err := q.Preload("Customer").
		Order("issue_date DESC").Order("created_at DESC").
		Limit(limitOrAll(f.Limit)).Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateStatus sets any status directly. Moving to PAID stamps paidAt the
// first time.
func (s *Service) UpdateStatus(ctx context.Context, ac auth.Context, id string, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	updates := map[string]any{"status": status}
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	if status == models.InvoiceStatusPaid {
		err := s.db.WithContext(ctx).Model(&models.Invoice{}).
			Where("id = ? AND paid_at IS NULL", id).
			Update("paid_at", s.now()).Error
		if err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, ac, id)
}

// RecordPayment books a manual payment. The invoice becomes PAID once the
// amount paid reaches the total; paid reports that transition.
func (s *Service) RecordPayment(ctx context.Context, ac auth.Context, id string, in PaymentInput) (inv *models.Invoice, paid bool, err error) {
	verr := validation.Struct(in)
	if !in.Amount.IsPositive() {
		verr.Add("amount", "must be greater than 0")
	}
	paidAt := s.now()
	if strings.TrimSpace(in.PaidAt) != "" {
		t, perr := models.ParseDate(in.PaidAt)
		if perr != nil {
			verr.Add("paidAt", perr.Error())
		}
		paidAt = t
	}
	if err := verr.OrNil(); err != nil {
		return nil, false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Invoice
		if err := tx.Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).Take(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		outstanding := cur.Total.Sub(cur.AmountPaid)
		if in.Amount.GreaterThan(outstanding) {
			v := &validation.Error{}
			v.Add("amount", "exceeds the outstanding balance of "+outstanding.StringFixed(2))
			return v
		}

		p := models.Payment{
			ID:                uuid.NewString(),
			InvoiceID:         cur.ID,
			Provider:          models.ProviderManual,
			ProviderPaymentID: uuid.NewString(),
			Amount:            in.Amount.Round(2),
			Currency:          cur.Currency,
			Status:            models.PaymentSucceeded,
			Note:              in.Note,
			ProcessedAt:       paidAt,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		newPaid := cur.AmountPaid.Add(p.Amount)
		updates := map[string]any{"amount_paid": newPaid}
		if newPaid.GreaterThanOrEqual(cur.Total) && cur.Status != models.InvoiceStatusPaid {
			updates["status"] = models.InvoiceStatusPaid
			if cur.PaidAt == nil {
				updates["paid_at"] = paidAt
			}
			paid = true
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", cur.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, false, err
	}
	inv, err = s.Get(ctx, ac, id)
	return inv, paid, err
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// limitOrAll maps an unset limit to gorm's "no limit".
func limitOrAll(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
