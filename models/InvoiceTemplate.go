package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceTemplate struct {
	ID          string                `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID string                `json:"workspaceId" gorm:"type:varchar(64);not null;index"`
	Name        string                `json:"name" gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Items       []InvoiceTemplateItem `json:"items" gorm:"foreignKey:TemplateID"`
}

type InvoiceTemplateItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TemplateID  string          `json:"templateId" gorm:"type:varchar(64);not null;index"`
	Description string          `json:"description" gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitPrice   decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
	SortOrder   int             `json:"sortOrder" gorm:"not null"`
}
