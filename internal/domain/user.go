package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the profile record for an auth identity. Its primary key equals the
// identity's id. Email uniqueness is enforced at the storage layer; service
// code still does the point lookup first for a friendly error message.
type User struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email          string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	OrganizationID *uuid.UUID     `gorm:"column:organization_id;type:uuid;index" json:"organization_id"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
