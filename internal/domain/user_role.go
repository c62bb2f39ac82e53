package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole links a user to a role within an organization.
// A user holds at most one active role per organization.
type UserRole struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_org" json:"user_id"`
	RoleID         uuid.UUID `gorm:"column:role_id;type:uuid;not null" json:"role_id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_user_org" json:"organization_id"`
	AssignedBy     uuid.UUID `gorm:"column:assigned_by;type:uuid;not null" json:"assigned_by"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

func (ur *UserRole) BeforeCreate(tx *gorm.DB) error {
	if ur.ID == uuid.Nil {
		ur.ID = uuid.New()
	}
	return nil
}
