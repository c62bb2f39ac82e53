package policies

import (
	"errors"
	"strings"
	"time"

	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSelfInvite      = errors.New("You cannot invite yourself")
	ErrAlreadyMember   = errors.New("User already belongs to an organization")
	ErrPendingExists   = errors.New("A pending invitation already exists for this email")
	ErrAdminOnly       = errors.New("Only admins can manage invitations")
	ErrEmailMismatch   = errors.New("Invitation email does not match the signup email")
	ErrNoLongerPending = errors.New("Invitation is no longer valid")
	ErrExpired         = errors.New("Invitation has expired")
)

// ValidateInviteCreation rejects self-invites, invites to users who already
// belong to an organization, and duplicate pending invitations.
func ValidateInviteCreation(db *gorm.DB, email string, orgID uuid.UUID, actorEmail string) error {
	normalized := strings.ToLower(email)

	if normalized == strings.ToLower(actorEmail) {
		return ErrSelfInvite
	}

	var user domain.User
	if err := db.Where("email = ?", normalized).First(&user).Error; err == nil {
		if user.OrganizationID != nil {
			return ErrAlreadyMember
		}
	}

	var invite domain.Invitation
	if err := db.Where("organization_id = ? AND email = ? AND status = ?",
		orgID, normalized, domain.InviteStatusPending).First(&invite).Error; err == nil {
		return ErrPendingExists
	}

	return nil
}

// ValidateInviteAcceptance checks the invitation is still pending, unexpired
// and addressed to the email signing up.
func ValidateInviteAcceptance(inv *domain.Invitation, signupEmail string, at time.Time) error {
	if !strings.EqualFold(inv.Email, signupEmail) {
		return ErrEmailMismatch
	}
	if inv.Status != domain.InviteStatusPending {
		return ErrNoLongerPending
	}
	if inv.ExpiresAt.Before(at) {
		return ErrExpired
	}
	return nil
}

// RequireOrgAdmin re-checks against the database that the actor holds the
// admin role in the organization. Session role alone is not trusted here.
func RequireOrgAdmin(db *gorm.DB, actorID, orgID uuid.UUID) error {
	var count int64
	err := db.Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND user_roles.organization_id = ? AND roles.name = ?",
			actorID, orgID, constants.Admin).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAdminOnly
	}
	return nil
}
