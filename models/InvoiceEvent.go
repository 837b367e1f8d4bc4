package models

import (
	"time"

	"gorm.io/datatypes"
)

type InvoiceEventType string

const (
	EventSentEmail          InvoiceEventType = "SENT_EMAIL"
	EventSentSMS            InvoiceEventType = "SENT_SMS"
	EventOpened             InvoiceEventType = "OPENED"
	EventPaidAlert          InvoiceEventType = "PAID_ALERT"
	EventPaymentLinkCreated InvoiceEventType = "PAYMENT_LINK_CREATED"
	EventEmailClicked       InvoiceEventType = "EMAIL_CLICKED"
	EventAlertEmail         InvoiceEventType = "ALERT_EMAIL"
)

type InvoiceEventStatus string

const (
	EventSuccess InvoiceEventStatus = "SUCCESS"
	EventFailed  InvoiceEventStatus = "FAILED"
)

// InvoiceEvent is append-only.
type InvoiceEvent struct {
	ID        string             `json:"id" gorm:"primaryKey;type:varchar(64)"`
	InvoiceID string             `json:"invoiceId" gorm:"type:varchar(64);not null;index"`
	Type      InvoiceEventType   `json:"type" gorm:"type:varchar(32);not null"`
	Status    InvoiceEventStatus `json:"status" gorm:"type:varchar(16);not null"`
	Channel   string             `json:"channel,omitempty" gorm:"type:varchar(16)"`
	Detail    datatypes.JSONMap  `json:"detail,omitempty"`
	CreatedAt time.Time          `json:"createdAt" gorm:"index"`
}
