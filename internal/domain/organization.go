package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is a tenant: an isolated customer account owning users and workflows.
type Organization struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Industry    string         `gorm:"column:industry;not null" json:"industry"`
	Size        string         `gorm:"column:size;not null" json:"size"`
	Description string         `gorm:"column:description" json:"description"`
	AdminID     *uuid.UUID     `gorm:"column:admin_id;type:uuid" json:"admin_id"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
