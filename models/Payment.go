package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentPending   PaymentStatus = "PENDING"
)

const (
	ProviderSquare = "square"
	ProviderManual = "manual"
)

// Payment is unique per (invoice, provider, provider payment id) so that
// redelivered provider events update the existing row.
type Payment struct {
	ID                string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	InvoiceID         string          `json:"invoiceId" gorm:"type:varchar(64);not null;uniqueIndex:idx_payments_provider_ref,priority:1"`
	Provider          string          `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:idx_payments_provider_ref,priority:2"`
	ProviderPaymentID string          `json:"providerPaymentId" gorm:"type:varchar(128);not null;uniqueIndex:idx_payments_provider_ref,priority:3"`
	ProviderOrderID   string          `json:"providerOrderId,omitempty" gorm:"type:varchar(128)"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency          string          `json:"currency" gorm:"type:varchar(3);not null"`
	Status            PaymentStatus   `json:"status" gorm:"type:varchar(16);not null"`
	Note              string          `json:"note,omitempty" gorm:"type:text"`
	ProcessedAt       time.Time       `json:"processedAt"`
	RawPayload        datatypes.JSON  `json:"-"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
