package invoicetemplates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/invoices"
	"ledgerflow/internal/validation"
	"ledgerflow/models"
)

var ErrNotFound = errors.New("invoice template not found")

type ItemInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type Input struct {
	Name  string      `json:"name" validate:"required,max=255"`
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, ac auth.Context, in Input) (*models.InvoiceTemplate, error) {
	verr := validation.Struct(in)
	for i, it := range in.Items {
		if !it.Quantity.IsPositive() {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		if it.UnitPrice.IsNegative() {
			verr.Add(fmt.Sprintf("items[%d].unitPrice", i), "must not be negative")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	tpl := models.InvoiceTemplate{
		ID:          uuid.NewString(),
		WorkspaceID: ac.WorkspaceID,
		Name:        strings.TrimSpace(in.Name),
	}
	for i, it := range in.Items {
		tpl.Items = append(tpl.Items, models.InvoiceTemplateItem{
			ID:          uuid.NewString(),
			TemplateID:  tpl.ID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			SortOrder:   i,
		})
	}
	if err := s.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *Service) List(ctx context.Context, ac auth.Context) ([]models.InvoiceTemplate, error) {
	out := make([]models.InvoiceTemplate, 0)
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Where("workspace_id = ?", ac.WorkspaceID).
		Order("name").
		Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, ac auth.Context, id string) (*models.InvoiceTemplate, error) {
	var tpl models.InvoiceTemplate
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).
		Take(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

func (s *Service) Delete(ctx context.Context, ac auth.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).Delete(&models.InvoiceTemplate{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("template_id = ?", id).Delete(&models.InvoiceTemplateItem{}).Error
	})
}

// Apply returns the template's items as invoice line inputs.
func (s *Service) Apply(ctx context.Context, ac auth.Context, id string) ([]invoices.LineInput, error) {
	tpl, err := s.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	lines := make([]invoices.LineInput, 0, len(tpl.Items))
	for _, it := range tpl.Items {
		lines = append(lines, invoices.LineInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return lines, nil
}
