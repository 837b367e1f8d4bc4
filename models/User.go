package models

import "time"

type MembershipRole string

const (
	RoleOwner  MembershipRole = "OWNER"
	RoleAdmin  MembershipRole = "ADMIN"
	RoleMember MembershipRole = "MEMBER"
)

type User struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Email              string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name               string    `json:"name" gorm:"type:varchar(255)"`
	PasswordHash       string    `json:"-" gorm:"type:varchar(255)"`
	DefaultWorkspaceID string    `json:"defaultWorkspaceId" gorm:"type:varchar(64);index"`
	SquareCustomerID   string    `json:"-" gorm:"type:varchar(128);index"`
	SubscriptionID     string    `json:"subscriptionId,omitempty" gorm:"type:varchar(128)"`
	SubscriptionStatus string    `json:"subscriptionStatus,omitempty" gorm:"type:varchar(32)"`
	SubscriptionPlan   string    `json:"subscriptionPlan,omitempty" gorm:"type:varchar(128)"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`

	Memberships []Membership `json:"memberships,omitempty" gorm:"foreignKey:UserID"`
}

// Membership links a user to a workspace with a role. One per (workspace, user).
type Membership struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	WorkspaceID string         `json:"workspaceId" gorm:"type:varchar(64);not null;uniqueIndex:idx_memberships_workspace_user,priority:1"`
	UserID      string         `json:"userId" gorm:"type:varchar(64);not null;uniqueIndex:idx_memberships_workspace_user,priority:2"`
	Role        MembershipRole `json:"role" gorm:"type:varchar(16);not null;default:'MEMBER'"`
	CreatedAt   time.Time      `json:"createdAt"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (r MembershipRole) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}
