package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/validation"
	"ledgerflow/models"
)

var (
	ErrNotFound = errors.New("customer not found")
	ErrInUse    = errors.New("customer has invoices")
)

type Input struct {
	Type         models.CustomerType `json:"type" validate:"omitempty,oneof=BUSINESS INDIVIDUAL"`
	Name         string              `json:"name" validate:"required,max=255"`
	Email        string              `json:"email" validate:"omitempty,email"`
	Phone        string              `json:"phone" validate:"max=64"`
	AddressLine1 string              `json:"addressLine1" validate:"max=255"`
	AddressLine2 string              `json:"addressLine2" validate:"max=255"`
	City         string              `json:"city" validate:"max=128"`
	State        string              `json:"state" validate:"max=128"`
	PostalCode   string              `json:"postalCode" validate:"max=32"`
	Country      string              `json:"country" validate:"max=64"`
	Notes        string              `json:"notes" validate:"max=5000"`
}

type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, ac auth.Context, in Input) (*models.Customer, error) {
	if err := validation.Struct(in).OrNil(); err != nil {
		return nil, err
	}
	c := models.Customer{ID: uuid.NewString(), WorkspaceID: ac.WorkspaceID}
	apply(&c, in)
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Update(ctx context.Context, ac auth.Context, id string, in Input) (*models.Customer, error) {
	if err := validation.Struct(in).OrNil(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	apply(c, in)
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// Delete refuses to remove a customer that still has invoices.
func (s *Service) Delete(ctx context.Context, ac auth.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Invoice{}).Where("customer_id = ? AND workspace_id = ?", id, ac.WorkspaceID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrInUse
		}
		res := tx.Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).Delete(&models.Customer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, ac auth.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, ac.WorkspaceID).Take(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) List(ctx context.Context, ac auth.Context, f ListFilter) ([]models.Customer, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Customer{}).Where("workspace_id = ?", ac.WorkspaceID)
	if v := strings.TrimSpace(f.Query); v != "" {
		like := "%" + v + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.Customer, 0)
	if err := q.Order("name").Limit(limitOrAll(f.Limit)).Offset(f.Offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func apply(c *models.Customer, in Input) {
	c.Type = in.Type
	if c.Type == "" {
		c.Type = models.CustomerBusiness
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.ToLower(strings.TrimSpace(in.Email))
	c.Phone = strings.TrimSpace(in.Phone)
	c.AddressLine1 = in.AddressLine1
	c.AddressLine2 = in.AddressLine2
	c.City = in.City
	c.State = in.State
	c.PostalCode = in.PostalCode
	c.Country = in.Country
	c.Notes = in.Notes
}

// limitOrAll maps an unset limit to gorm's "no limit".
func limitOrAll(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
