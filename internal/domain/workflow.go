package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workflow statuses. Workflows are stored definitions only; no execution
// engine processes them.
const (
	WorkflowStatusDraft  = "draft"
	WorkflowStatusActive = "active"
)

// Workflow is the container for an ordered approval chain definition.
type Workflow struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Department     string         `gorm:"column:department;not null" json:"department"`
	Type           string         `gorm:"column:type;not null" json:"type"`
	Description    string         `gorm:"column:description" json:"description"`
	OrganizationID uuid.UUID      `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	Status         string         `gorm:"column:status;not null;default:'draft'" json:"status"`
	CreatedBy      uuid.UUID      `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}

func (w *Workflow) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WorkflowStep is one approval stage. OrderIndex is contiguous starting at 1.
type WorkflowStep struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WorkflowID    uuid.UUID `gorm:"column:workflow_id;type:uuid;not null;index" json:"workflow_id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	ApproverEmail string    `gorm:"column:approver_email;not null" json:"approver_email"`
	OrderIndex    int       `gorm:"column:order_index;not null" json:"order_index"`
	Required      bool      `gorm:"column:required;not null;default:true" json:"required"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (WorkflowStep) TableName() string {
	return "workflow_steps"
}

func (s *WorkflowStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
