package models

import "github.com/shopspring/decimal"

type InvoiceLine struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	InvoiceID   string          `json:"invoiceId" gorm:"type:varchar(64);not null;index"`
	Description string          `json:"description" gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitPrice   decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	SortOrder   int             `json:"sortOrder" gorm:"not null"`
}
