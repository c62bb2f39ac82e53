package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invitation statuses. pending is the only non-terminal state: it moves to
// accepted, to expired, or is removed by cancellation. No transition leaves
// accepted or expired.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

// Invitation is a time-boxed, single-use capability granting account creation
// into a specific organization and role. Token is the sole capability for
// acceptance. Cancellation hard-deletes the row, so there is no soft-delete
// column here.
type Invitation struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email          string     `gorm:"column:email;not null" json:"email"`
	Name           *string    `gorm:"column:name" json:"name"`
	RoleID         uuid.UUID  `gorm:"column:role_id;type:uuid;not null" json:"role_id"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	InvitedBy      uuid.UUID  `gorm:"column:invited_by;type:uuid;not null" json:"invited_by"`
	Token          string     `gorm:"column:token;not null;uniqueIndex" json:"token"`
	Status         string     `gorm:"column:status;not null;default:'pending'" json:"status"`
	ExpiresAt      time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
	AcceptedAt     *time.Time `gorm:"column:accepted_at" json:"accepted_at"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
