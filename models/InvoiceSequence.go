package models

import "time"

// InvoiceSequence is the per-workspace invoice number counter.
type InvoiceSequence struct {
	WorkspaceID string    `json:"workspaceId" gorm:"primaryKey;type:varchar(64)"`
	Prefix      string    `json:"prefix" gorm:"type:varchar(32);not null"`
	Width       int       `json:"width" gorm:"not null"`
	LastValue   int64     `json:"lastValue" gorm:"not null"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
