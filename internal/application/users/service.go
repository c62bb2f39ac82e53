package users

import (
	"context"
	"errors"
	"time"

	"approvalflow-backend/internal/application/membership"
	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrUserNotInOrg     = errors.New("User does not belong to this organization")
	ErrSelfModification = errors.New("You cannot change your own role or membership")
	ErrUnknownRole      = errors.New("Unknown role")
)

// Service handles member listing and membership changes within one org.
type Service struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Assigner membership.Assigner
}

// MemberView is one row of the org members listing.
type MemberView struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// List returns the members of an organization with their role names.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]MemberView, error) {
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
	return members, nil
}

// memberOf loads the target user and verifies org membership.
func (s *Service) memberOf(ctx context.Context, userID, orgID uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotInOrg
		}
		return nil, err
	}
	if user.OrganizationID == nil || *user.OrganizationID != orgID {
		return nil, ErrUserNotInOrg
	}
	return &user, nil
}

// UpdateRole reassigns a member's role and invalidates their sessions so the
// next request carries the new role.
func (s *Service) UpdateRole(ctx context.Context, actorID, orgID, targetID uuid.UUID, roleName string) (*MemberView, error) {
	if actorID == targetID {
		return nil, ErrSelfModification
	}
	if !constants.IsValidRole(roleName) {
		return nil, ErrUnknownRole
	}
	user, err := s.memberOf(ctx, targetID, orgID)
	if err != nil {
		return nil, err
	}

	var role domain.Role
	if err := s.DB.WithContext(ctx).Where("name = ?", roleName).First(&role).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnknownRole
		}
		return nil, err
	}

	if _, err := s.Assigner.Assign(ctx, membership.AssignInput{
		UserID:         targetID,
		RoleID:         role.ID,
		OrganizationID: orgID,
		AssignedBy:     actorID,
	}); err != nil {
		return nil, err
	}

	membership.DestroyUserSessions(ctx, s.Rdb, targetID.String())

	return &MemberView{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     roleName,
		JoinedAt: user.CreatedAt,
	}, nil
}

// Remove detaches a member from the organization: the role assignment is
// deleted, the org binding cleared and their sessions destroyed. The account
// itself survives.
func (s *Service) Remove(ctx context.Context, actorID, orgID, targetID uuid.UUID) error {
	if actorID == targetID {
		return ErrSelfModification
	}
	if _, err := s.memberOf(ctx, targetID, orgID); err != nil {
		return err
	}

	if err := membership.Remove(ctx, s.DB, targetID, orgID); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", targetID).
		Update("organization_id", nil).Error; err != nil {
		return err
	}

	membership.DestroyUserSessions(ctx, s.Rdb, targetID.String())
	return nil
}
