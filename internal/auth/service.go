package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledgerflow/internal/validation"
	"ledgerflow/models"
)

type RegisterInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	WorkspaceName string `json:"workspaceName" validate:"required,max=255"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service creates accounts and exchanges credentials for tokens.
type Service struct {
	db     *gorm.DB
	tokens *Tokens
}

func NewService(db *gorm.DB, tokens *Tokens) *Service {
	return &Service{db: db, tokens: tokens}
}

// Register creates a user, their workspace and an OWNER membership.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, *models.User, error) {
	if err := validation.Struct(in).OrNil(); err != nil {
		return "", nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	ws := models.Workspace{ID: uuid.NewString(), Name: in.WorkspaceName}
	user := models.User{
		ID:                 uuid.NewString(),
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Name:               in.Name,
		PasswordHash:       hash,
		DefaultWorkspaceID: ws.ID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.Create(&models.Membership{
			ID:          uuid.NewString(),
			WorkspaceID: ws.ID,
			UserID:      user.ID,
			Role:        models.RoleOwner,
		}).Error
	})
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(Context{UserID: user.ID, WorkspaceID: ws.ID, IsAdmin: true})
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, &user, nil
}

// Login verifies the password and issues a token for the user's default
// workspace.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validation.Struct(in).OrNil(); err != nil {
		return "", err
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if user.PasswordHash == "" || !CheckPassword(user.PasswordHash, in.Password) {
		return "", ErrInvalidCredentials
	}

	var m models.Membership
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND workspace_id = ?", user.ID, user.DefaultWorkspaceID).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrForbidden
		}
		return "", err
	}
	return s.tokens.Issue(Context{UserID: user.ID, WorkspaceID: m.WorkspaceID, IsAdmin: m.Role.IsAdmin()})
}
