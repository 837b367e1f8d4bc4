package models

import "time"

type CustomerType string

const (
	CustomerBusiness   CustomerType = "BUSINESS"
	CustomerIndividual CustomerType = "INDIVIDUAL"
)

type Customer struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID  string       `json:"workspaceId" gorm:"type:varchar(64);not null;index"`
	Type         CustomerType `json:"type" gorm:"type:varchar(16);not null;default:'BUSINESS'"`
	Name         string       `json:"name" gorm:"type:varchar(255);not null"`
	Email        string       `json:"email" gorm:"type:varchar(255)"`
	Phone        string       `json:"phone" gorm:"type:varchar(64)"`
	AddressLine1 string       `json:"addressLine1" gorm:"type:varchar(255)"`
	AddressLine2 string       `json:"addressLine2" gorm:"type:varchar(255)"`
	City         string       `json:"city" gorm:"type:varchar(128)"`
	State        string       `json:"state" gorm:"type:varchar(128)"`
	PostalCode   string       `json:"postalCode" gorm:"type:varchar(32)"`
	Country      string       `json:"country" gorm:"type:varchar(64)"`
	Notes        string       `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
