package models

import (
	"time"

	"gorm.io/datatypes"
)

type Workspace struct {
	ID             string            `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name           string            `json:"name" gorm:"type:varchar(255);not null"`
	CompanyEmail   string            `json:"companyEmail" gorm:"type:varchar(255)"`
	CompanyPhone   string            `json:"companyPhone" gorm:"type:varchar(64)"`
	CompanyAddress string            `json:"companyAddress" gorm:"type:text"`
	LogoURL        string            `json:"logoUrl" gorm:"type:varchar(512)"`
	BrandColor     string            `json:"brandColor" gorm:"type:varchar(16)"`
	Settings       datatypes.JSONMap `json:"settings"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`

	Memberships []Membership `json:"-" gorm:"foreignKey:WorkspaceID"`
}
