package org

import (
	"context"
	"errors"
	"strings"
	"time"

	"approvalflow-backend/internal/application/membership"
	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/constants"
	"approvalflow-backend/internal/pkg/saga"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNameRequired    = errors.New("Organization name is required")
	ErrAlreadyInOrg    = errors.New("User already belongs to an organization")
	ErrEmailUnverified = errors.New("Email must be confirmed before creating an organization")
	ErrOrgNotFound     = errors.New("Organization not found")
)

// Service encapsulates organization operations.
type Service struct {
	DB       *gorm.DB
	Assigner membership.Assigner
}

// OnboardInput mirrors the organization setup wizard payload.
type OnboardInput struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Size        string `json:"size"`
	Description string `json:"description"`
	AdminName   string `json:"admin_name"`
}

// MemberView is one row of the members listing.
type MemberView struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// OrgView is the organization plus its members.
type OrgView struct {
	Organization *domain.Organization `json:"organization"`
	Members      []MemberView         `json:"members"`
}

// Onboard creates an organization and installs the caller as its admin. The
// steps run as a compensated sequence: if the role assignment fails, the user
// binding and the organization row are both rolled back.
func (s *Service) Onboard(ctx context.Context, userID uuid.UUID, in OnboardInput) (*domain.Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}

	var identity domain.AuthIdentity
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&identity).Error; err != nil {
		return nil, err
	}
	if !identity.Confirmed() {
		return nil, ErrEmailUnverified
	}

	var user domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	if user.OrganizationID != nil {
		return nil, ErrAlreadyInOrg
	}

	var adminRole domain.Role
	if err := s.DB.WithContext(ctx).Where("name = ?", constants.Admin).First(&adminRole).Error; err != nil {
		return nil, err
	}

	prevName := user.Name
	org := domain.Organization{
		Name:        in.Name,
		Industry:    strings.TrimSpace(in.Industry),
		Size:        strings.TrimSpace(in.Size),
		Description: strings.TrimSpace(in.Description),
	}

	err := saga.Run(ctx,
		saga.Step{
			Name: "create organization",
			Do: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Create(&org).Error
			},
			Undo: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Unscoped().Delete(&domain.Organization{}, "id = ?", org.ID).Error
			},
		},
		saga.Step{
			Name: "bind user to organization",
			Do: func(ctx context.Context) error {
				updates := map[string]interface{}{"organization_id": org.ID}
				if name := strings.TrimSpace(in.AdminName); name != "" {
					updates["name"] = name
				}
				return s.DB.WithContext(ctx).Model(&domain.User{}).
					Where("id = ?", userID).
					Updates(updates).Error
			},
			Undo: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Model(&domain.User{}).
					Where("id = ?", userID).
					Updates(map[string]interface{}{"organization_id": nil, "name": prevName}).Error
			},
		},
		saga.Step{
			Name: "assign admin role",
			Do: func(ctx context.Context) error {
				_, err := s.Assigner.Assign(ctx, membership.AssignInput{
					UserID:         userID,
					RoleID:         adminRole.ID,
					OrganizationID: org.ID,
					AssignedBy:     userID,
				})
				return err
			},
			Undo: func(ctx context.Context) error {
				return membership.Remove(ctx, s.DB, userID, org.ID)
			},
		},
		saga.Step{
			Name: "record organization admin",
			Do: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Model(&domain.Organization{}).
					Where("id = ?", org.ID).
					Update("admin_id", userID).Error
			},
		},
	)
	if err != nil {
		return nil, err
	}
	org.AdminID = &userID
	return &org, nil
}

// View returns the organization and its members with role names.
func (s *Service) View(ctx context.Context, orgID uuid.UUID) (*OrgView, error) {
	var org domain.Organization
	if err := s.DB.WithContext(ctx).Where("id = ?", orgID).First(&org).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	var members []MemberView
	err := s.DB.WithContext(ctx).
		Table("users").
		Select("users.id AS user_id, users.name, users.email, roles.name AS role, users.created_at AS joined_at").
		Joins("LEFT JOIN user_roles ON user_roles.user_id = users.id AND user_roles.organization_id = ?", orgID).
		Joins("LEFT JOIN roles ON roles.id = user_roles.role_id").
		Where("users.organization_id = ? AND users.deleted_at IS NULL", orgID).
		Order("users.created_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return &OrgView{Organization: &org, Members: members}, nil
}

// UpdateInput carries the editable organization fields. Pointers distinguish
// "absent" from "set to empty".
type UpdateInput struct {
	Name        *string `json:"name"`
	Industry    *string `json:"industry"`
	Size        *string `json:"size"`
	Description *string `json:"description"`
}

// Update applies the allow-listed fields and returns the fresh row.
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, in UpdateInput) (*domain.Organization, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		updates["name"] = name
	}
	if in.Industry != nil {
		updates["industry"] = strings.TrimSpace(*in.Industry)
	}
	if in.Size != nil {
		updates["size"] = strings.TrimSpace(*in.Size)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}

	var org domain.Organization
	if err := s.DB.WithContext(ctx).Where("id = ?", orgID).First(&org).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	if len(updates) == 0 {
		return &org, nil
	}
	if err := s.DB.WithContext(ctx).Model(&org).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &org, nil
}
