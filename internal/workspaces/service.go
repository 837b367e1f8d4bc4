package workspaces

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/validation"
	"ledgerflow/models"
)

var ErrNotFound = errors.New("workspace not found")

type SettingsInput struct {
	Name           string `json:"name" validate:"required,max=255"`
	CompanyEmail   string `json:"companyEmail" validate:"omitempty,email"`
	CompanyPhone   string `json:"companyPhone" validate:"max=64"`
	CompanyAddress string `json:"companyAddress" validate:"max=2000"`
	LogoURL        string `json:"logoUrl" validate:"omitempty,url"`
	BrandColor     string `json:"brandColor" validate:"omitempty,hexcolor"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, ac auth.Context) (*models.Workspace, error) {
	var ws models.Workspace
	if err := s.db.WithContext(ctx).Where("id = ?", ac.WorkspaceID).Take(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// UpdateSettings changes the company branding shown on invoices. Admins only.
func (s *Service) UpdateSettings(ctx context.Context, ac auth.Context, in SettingsInput) (*models.Workspace, error) {
	if err := ac.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validation.Struct(in).OrNil(); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ?", ac.WorkspaceID).
		Updates(map[string]any{
			"name":            strings.TrimSpace(in.Name),
			"company_email":   in.CompanyEmail,
			"company_phone":   in.CompanyPhone,
			"company_address": in.CompanyAddress,
			"logo_url":        in.LogoURL,
			"brand_color":     in.BrandColor,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, ac)
}

// AlertRecipients returns who should hear about opens and payments on a
// workspace's invoices. A non-empty override wins; otherwise every member
// whose role is above MEMBER.
func AlertRecipients(ctx context.Context, db *gorm.DB, workspaceID string, override []string) ([]string, error) {
	if len(override) > 0 {
		return override, nil
	}
	var emails []string
	err := db.WithContext(ctx).
		Table("memberships").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.workspace_id = ? AND memberships.role <> ?", workspaceID, models.RoleMember).
		Where("users.email <> ''").
		Order("users.email").
		Pluck("users.email", &emails).Error
	return emails, err
}
