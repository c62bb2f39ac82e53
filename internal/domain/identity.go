package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthIdentity is the authentication record behind a user account.
// User rows share the identity's id as their primary key.
type AuthIdentity struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email             string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash      string     `gorm:"column:password_hash;not null" json:"-"`
	ConfirmationToken *string    `gorm:"column:confirmation_token;uniqueIndex" json:"-"`
	ConfirmedAt       *time.Time `gorm:"column:confirmed_at" json:"confirmed_at"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (AuthIdentity) TableName() string {
	return "auth_identities"
}

func (a *AuthIdentity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Confirmed reports whether the identity's email address has been verified.
func (a *AuthIdentity) Confirmed() bool {
	return a.ConfirmedAt != nil
}
