package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	}
	return false
}

type DepositType string

const (
	DepositFixed      DepositType = "FIXED"
	DepositPercentage DepositType = "PERCENTAGE"
)

type Invoice struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID     string          `json:"workspaceId" gorm:"type:varchar(64);not null;uniqueIndex:idx_invoices_workspace_number,priority:1"`
	CustomerID      string          `json:"customerId" gorm:"type:varchar(64);not null;index"`
	Number          string          `json:"number" gorm:"type:varchar(64);not null;uniqueIndex:idx_invoices_workspace_number,priority:2"`
	Status          InvoiceStatus   `json:"status" gorm:"type:varchar(16);not null;default:'DRAFT'"`
	Currency        string          `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	TaxTotal        decimal.Decimal `json:"taxTotal" gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	AmountPaid      decimal.Decimal `json:"amountPaid" gorm:"type:decimal(12,2);not null"`
	RequiresDeposit bool            `json:"requiresDeposit"`
	DepositType     DepositType     `json:"depositType,omitempty" gorm:"type:varchar(16)"`
	DepositValue    decimal.Decimal `json:"depositValue" gorm:"type:decimal(12,2);not null"`
	DepositAmount   decimal.Decimal `json:"depositAmount" gorm:"type:decimal(12,2);not null"`
	DepositDueDate  *time.Time      `json:"depositDueDate,omitempty"`
	IssueDate       time.Time       `json:"issueDate" gorm:"not null"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	SentAt          *time.Time      `json:"sentAt,omitempty"`
	FirstOpenedAt   *time.Time      `json:"firstOpenedAt,omitempty"`
	LastOpenedAt    *time.Time      `json:"lastOpenedAt,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaidNotifiedAt  *time.Time      `json:"paidNotifiedAt,omitempty"`
	PaymentLinkURL  string          `json:"paymentLinkUrl,omitempty" gorm:"type:varchar(512)"`
	SquareOrderID   string          `json:"-" gorm:"type:varchar(128);index"`
	Notes           string          `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	Customer  *Customer     `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Workspace *Workspace    `json:"-" gorm:"foreignKey:WorkspaceID"`
	Lines     []InvoiceLine `json:"lines,omitempty" gorm:"foreignKey:InvoiceID"`
	Payments  []Payment     `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

// RemainingBalance is what is still owed once the deposit is collected.
func (i Invoice) RemainingBalance() decimal.Decimal {
	return i.Total.Sub(i.DepositAmount)
}

// ChargeAmount is the amount a payment link should collect.
func (i Invoice) ChargeAmount() decimal.Decimal {
	if i.RequiresDeposit && i.DepositAmount.IsPositive() {
		return i.DepositAmount
	}
	return i.Total
}
