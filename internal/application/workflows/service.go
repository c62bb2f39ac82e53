package workflows

import (
	"context"
	"errors"
	"strings"

	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/saga"
	"approvalflow-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNameRequired      = errors.New("Workflow name is required")
	ErrStepsRequired     = errors.New("A workflow needs at least one step")
	ErrStepNameRequired  = errors.New("Every step needs a name")
	ErrBadApproverEmail  = errors.New("Step approver email is invalid")
	ErrWorkflowNotFound  = errors.New("Workflow not found")
	ErrUnknownStatus     = errors.New("Unknown workflow status")
)

// StepInserter writes the step rows of a new workflow. Tests substitute a
// failing implementation to exercise the rollback path.
type StepInserter interface {
	InsertSteps(ctx context.Context, steps []domain.WorkflowStep) error
}

// GormStepInserter bulk-inserts steps.
type GormStepInserter struct {
	DB *gorm.DB
}

func (g *GormStepInserter) InsertSteps(ctx context.Context, steps []domain.WorkflowStep) error {
	return g.DB.WithContext(ctx).Create(&steps).Error
}

// Service owns workflow definitions and their ordered steps.
type Service struct {
	DB    *gorm.DB
	Steps StepInserter
}

// StepInput is one step of a create request. Order is taken from slice
// position, not from the client.
type StepInput struct {
	Name          string `json:"name"`
	ApproverEmail string `json:"approver_email"`
	Required      *bool  `json:"required"`
}

// CreateInput for creating a workflow with its steps.
type CreateInput struct {
	OrgID       uuid.UUID
	CreatedBy   uuid.UUID
	Name        string      `json:"name"`
	Department  string      `json:"department"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Steps       []StepInput `json:"steps"`
}

// WorkflowView is a workflow with its steps in order.
type WorkflowView struct {
	Workflow *domain.Workflow      `json:"workflow"`
	Steps    []domain.WorkflowStep `json:"steps"`
}

func validateCreate(in *CreateInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if len(in.Steps) == 0 {
		return ErrStepsRequired
	}
	for _, st := range in.Steps {
		if strings.TrimSpace(st.Name) == "" {
			return ErrStepNameRequired
		}
		if st.ApproverEmail != "" && !validation.IsValidEmail(st.ApproverEmail) {
			return ErrBadApproverEmail
		}
	}
	if in.Status == "" {
		in.Status = domain.WorkflowStatusDraft
	}
	if in.Status != domain.WorkflowStatusDraft && in.Status != domain.WorkflowStatusActive {
		return ErrUnknownStatus
	}
	return nil
}

// Create writes the workflow and its steps as a compensated pair: if the
// step insert fails, the workflow row is removed and nothing is visible.
func (s *Service) Create(ctx context.Context, in CreateInput) (*WorkflowView, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	wf := domain.Workflow{
		Name:           in.Name,
		Department:     strings.TrimSpace(in.Department),
		Type:           strings.TrimSpace(in.Type),
		Description:    strings.TrimSpace(in.Description),
		OrganizationID: in.OrgID,
		Status:         in.Status,
		CreatedBy:      in.CreatedBy,
	}
	var steps []domain.WorkflowStep

	err := saga.Run(ctx,
		saga.Step{
			Name: "create workflow",
			Do: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Create(&wf).Error
			},
			Undo: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Unscoped().Delete(&domain.Workflow{}, "id = ?", wf.ID).Error
			},
		},
		saga.Step{
			Name: "insert workflow steps",
			Do: func(ctx context.Context) error {
				steps = make([]domain.WorkflowStep, 0, len(in.Steps))
				for i, st := range in.Steps {
					required := true
					if st.Required != nil {
						required = *st.Required
					}
					steps = append(steps, domain.WorkflowStep{
						WorkflowID:    wf.ID,
						Name:          strings.TrimSpace(st.Name),
						ApproverEmail: strings.ToLower(strings.TrimSpace(st.ApproverEmail)),
						OrderIndex:    i + 1,
						Required:      required,
					})
				}
				return s.Steps.InsertSteps(ctx, steps)
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return &WorkflowView{Workflow: &wf, Steps: steps}, nil
}

// List returns an organization's workflows, newest first.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]domain.Workflow, error) {
	var out []domain.Workflow
	err := s.DB.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one workflow with its steps in order. Lookups are always
// scoped to the caller's organization.
func (s *Service) Get(ctx context.Context, orgID, workflowID uuid.UUID) (*WorkflowView, error) {
	var wf domain.Workflow
	err := s.DB.WithContext(ctx).
		Where("id = ? AND organization_id = ?", workflowID, orgID).
		First(&wf).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}

	var steps []domain.WorkflowStep
	if err := s.DB.WithContext(ctx).
		Where("workflow_id = ?", wf.ID).
		Order("order_index ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}
	return &WorkflowView{Workflow: &wf, Steps: steps}, nil
}

// UpdateInput carries the editable workflow fields.
type UpdateInput struct {
	Name        *string `json:"name"`
	Department  *string `json:"department"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Update applies allow-listed fields to a workflow in the caller's org.
func (s *Service) Update(ctx context.Context, orgID, workflowID uuid.UUID, in UpdateInput) (*domain.Workflow, error) {
	var wf domain.Workflow
	err := s.DB.WithContext(ctx).
		Where("id = ? AND organization_id = ?", workflowID, orgID).
		First(&wf).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		updates["name"] = name
	}
	if in.Department != nil {
		updates["department"] = strings.TrimSpace(*in.Department)
	}
	if in.Type != nil {
		updates["type"] = strings.TrimSpace(*in.Type)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		if *in.Status != domain.WorkflowStatusDraft && *in.Status != domain.WorkflowStatusActive {
			return nil, ErrUnknownStatus
		}
		updates["status"] = *in.Status
	}
	if len(updates) == 0 {
		return &wf, nil
	}
	if err := s.DB.WithContext(ctx).Model(&wf).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &wf, nil
}

// Delete removes a workflow and its steps. Steps go first so a half-failed
// delete never leaves orphan steps behind a live workflow.
func (s *Service) Delete(ctx context.Context, orgID, workflowID uuid.UUID) error {
	var wf domain.Workflow
	err := s.DB.WithContext(ctx).
		Where("id = ? AND organization_id = ?", workflowID, orgID).
		First(&wf).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrWorkflowNotFound
		}
		return err
	}

	if err := s.DB.WithContext(ctx).
		Where("workflow_id = ?", wf.ID).
		Delete(&domain.WorkflowStep{}).Error; err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Delete(&wf).Error
}
