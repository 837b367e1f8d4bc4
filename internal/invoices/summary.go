package invoices

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledgerflow/internal/auth"
	"ledgerflow/models"
)

// SummaryRow is one row of the v_invoice_summary view.
type SummaryRow struct {
	InvoiceID     string               `json:"invoiceId"`
	Number        string               `json:"number"`
	Status        models.InvoiceStatus `json:"status"`
	IssueDate     time.Time            `json:"issueDate"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
	Currency      string               `json:"currency"`
	Total         decimal.Decimal      `json:"total"`
	AmountPaid    decimal.Decimal      `json:"amountPaid"`
	DepositAmount decimal.Decimal      `json:"depositAmount"`
	SentAt        *time.Time           `json:"sentAt,omitempty"`
	PaidAt        *time.Time           `json:"paidAt,omitempty"`
	CustomerID    string               `json:"customerId"`
	CustomerName  string               `json:"customerName"`
	CustomerEmail string               `json:"customerEmail"`
}

// StatusTotal aggregates invoices per status.
type StatusTotal struct {
	Status     models.InvoiceStatus `json:"status"`
	Count      int64                `json:"count"`
	Total      decimal.Decimal      `json:"total"`
	AmountPaid decimal.Decimal      `json:"amountPaid"`
}

func (s *Service) Summary(ctx context.Context, ac auth.Context, f ListFilter) ([]SummaryRow, error) {
	q := s.db.WithContext(ctx).Table("v_invoice_summary").Where("workspace_id = ?", ac.WorkspaceID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.From != nil {
		q = q.Where("issue_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("issue_date <= ?", *f.To)
	}
	rows := make([]SummaryRow, 0)
	err := q.Order("issue_date DESC").Limit(limitOrAll(f.Limit)).Offset(f.Offset).Find(&rows).Error
	return rows, err
}

func (s *Service) StatusTotals(ctx context.Context, ac auth.Context) ([]StatusTotal, error) {
	out := make([]StatusTotal, 0)
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total, COALESCE(SUM(amount_paid), 0) AS amount_paid").
		Where("workspace_id = ?", ac.WorkspaceID).
		Group("status").
		Order("status").
		Scan(&out).Error
	return out, err
}
