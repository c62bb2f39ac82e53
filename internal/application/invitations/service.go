package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"approvalflow-backend/internal/application/emails"
	"approvalflow-backend/internal/application/invitations/policies"
	"approvalflow-backend/internal/application/membership"
	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/saga"
	"approvalflow-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const inviteExpiry = 7 * 24 * time.Hour
const bcryptCost = 10

var (
	ErrInvalidToken    = errors.New("Invalid invitation token")
	ErrNotFound        = errors.New("Invitation not found")
	ErrPendingNotFound = errors.New("Pending invitation not found")
	ErrUnknownRole     = errors.New("Unknown role")
	ErrInvalidEmail    = errors.New("Invalid Email")
	ErrWeakPassword    = errors.New("Password must be at least 8 characters and include a letter, a number and a special character")
	ErrEmailTaken      = errors.New("An account with this email already exists")
)

// Service owns the invitation lifecycle: creation, token checks, acceptance
// with account creation, resend and cancellation.
type Service struct {
	DB            *gorm.DB
	Assigner      membership.Assigner
	Sender        emails.Sender
	InviteBaseURL string
}

// CreateInput for sending an invitation.
type CreateInput struct {
	ActorID    uuid.UUID
	ActorEmail string
	OrgID      uuid.UUID
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

// Create validates the request, writes a pending invitation with a fresh
// token and a 7-day expiry, and composes the invitation email best-effort.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Invitation, error) {
	normalized := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(normalized) {
		return nil, ErrInvalidEmail
	}
	if err := policies.RequireOrgAdmin(s.DB.WithContext(ctx), in.ActorID, in.OrgID); err != nil {
		return nil, err
	}
	if err := policies.ValidateInviteCreation(s.DB.WithContext(ctx), normalized, in.OrgID, in.ActorEmail); err != nil {
		return nil, err
	}

	var role domain.Role
	if err := s.DB.WithContext(ctx).Where("name = ?", in.Role).First(&role).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnknownRole
		}
		return nil, err
	}

	inv := domain.Invitation{
		Email:          normalized,
		RoleID:         role.ID,
		OrganizationID: in.OrgID,
		InvitedBy:      in.ActorID,
		Token:          uuid.New().String(),
		Status:         domain.InviteStatusPending,
		ExpiresAt:      time.Now().Add(inviteExpiry),
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		inv.Name = &name
	}
	if err := s.DB.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, err
	}

	s.composeInviteEmail(ctx, &inv, role.Name)
	return &inv, nil
}

func (s *Service) composeInviteEmail(ctx context.Context, inv *domain.Invitation, roleName string) {
	var org domain.Organization
	orgName := ""
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.OrganizationID).First(&org).Error; err == nil {
		orgName = org.Name
	}
	link := fmt.Sprintf("%s/accept-invitation?token=%s", s.InviteBaseURL, inv.Token)
	subject := fmt.Sprintf("You're invited to join %s on ApprovalFlow", orgName)
	if err := s.Sender.SendInvitation(ctx, inv.Email, link, orgName, roleName, subject); err != nil {
		log.Warn().Err(err).Str("email", inv.Email).Msg("invitation email failed")
	}
}

// TokenView is the public shape returned for a token check. Status carries
// accepted/expired so the signup page can render the right message.
type TokenView struct {
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      string    `json:"role"`
	OrgID     uuid.UUID `json:"organization_id"`
	OrgName   string    `json:"organization_name"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

// resolve loads the invitation and lazily flips pending rows that are past
// their expiry. The flip is idempotent; later reads see the stored status.
func (s *Service) resolve(ctx context.Context, token string) (*domain.Invitation, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if inv.Status == domain.InviteStatusPending && inv.ExpiresAt.Before(time.Now()) {
		inv.Status = domain.InviteStatusExpired
		if err := s.DB.WithContext(ctx).Model(&inv).Update("status", domain.InviteStatusExpired).Error; err != nil {
			return nil, err
		}
	}
	return &inv, nil
}

// CheckToken resolves a token to its invitation details. Unknown tokens are
// an error; accepted and expired invitations are returned as data.
func (s *Service) CheckToken(ctx context.Context, token string) (*TokenView, error) {
	inv, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	var role domain.Role
	roleName := ""
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.RoleID).First(&role).Error; err == nil {
		roleName = role.Name
	}
	var org domain.Organization
	orgName := ""
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.OrganizationID).First(&org).Error; err == nil {
		orgName = org.Name
	}

	return &TokenView{
		Email:     inv.Email,
		Name:      inv.Name,
		Role:      roleName,
		OrgID:     inv.OrganizationID,
		OrgName:   orgName,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

// AcceptInput for the invitation signup form.
type AcceptInput struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AcceptResult is what acceptance resolves for the new session.
type AcceptResult struct {
	User         *domain.User         `json:"user"`
	Organization *domain.Organization `json:"organization"`
	Role         string               `json:"role"`
}

// Accept creates the invited user's account and membership in one compensated
// sequence: auth identity (pre-confirmed, the invite email proves ownership),
// profile row bound to the org, then the role assignment. Any failure removes
// everything written before it and leaves the invitation pending.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (*AcceptResult, error) {
	inv, err := s.resolve(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	signupEmail := strings.ToLower(strings.TrimSpace(in.Email))
	if signupEmail == "" {
		signupEmail = inv.Email
	}
	if err := policies.ValidateInviteAcceptance(inv, signupEmail, time.Now()); err != nil {
		return nil, err
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	var existing domain.AuthIdentity
	if err := s.DB.WithContext(ctx).Where("email = ?", inv.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" && inv.Name != nil {
		name = *inv.Name
	}

	now := time.Now()
	identity := domain.AuthIdentity{
		Email:        inv.Email,
		PasswordHash: string(hash),
		ConfirmedAt:  &now,
	}
	var user domain.User

	err = saga.Run(ctx,
		saga.Step{
			Name: "create auth identity",
			Do: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Create(&identity).Error
			},
			Undo: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Delete(&domain.AuthIdentity{}, "id = ?", identity.ID).Error
			},
		},
		saga.Step{
			Name: "create user profile",
			Do: func(ctx context.Context) error {
				user = domain.User{
					ID:             identity.ID,
					Email:          identity.Email,
					Name:           name,
					OrganizationID: &inv.OrganizationID,
				}
				return s.DB.WithContext(ctx).Create(&user).Error
			},
			Undo: func(ctx context.Context) error {
				return s.DB.WithContext(ctx).Unscoped().Delete(&domain.User{}, "id = ?", user.ID).Error
			},
		},
		saga.Step{
			Name: "assign invited role",
			Do: func(ctx context.Context) error {
				_, err := s.Assigner.Assign(ctx, membership.AssignInput{
					UserID:         identity.ID,
					RoleID:         inv.RoleID,
					OrganizationID: inv.OrganizationID,
					AssignedBy:     inv.InvitedBy,
				})
				return err
			},
		},
	)
	if err != nil {
		return nil, err
	}

	acceptedAt := time.Now()
	if err := s.DB.WithContext(ctx).Model(inv).Updates(map[string]interface{}{
		"status":      domain.InviteStatusAccepted,
		"accepted_at": &acceptedAt,
	}).Error; err != nil {
		log.Warn().Err(err).Str("invitation_id", inv.ID.String()).Msg("failed to mark invitation accepted")
	}

	var org domain.Organization
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.OrganizationID).First(&org).Error; err != nil {
		return nil, err
	}
	var role domain.Role
	roleName := ""
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.RoleID).First(&role).Error; err == nil {
		roleName = role.Name
	}

	return &AcceptResult{User: &user, Organization: &org, Role: roleName}, nil
}

// ResendInput identifies the invitation to resend.
type ResendInput struct {
	ActorID uuid.UUID
	OrgID   uuid.UUID
	Email   string `json:"email"`
}

// Resend rotates the token and expiry in place. Only pending invitations can
// be resent; the previous token stops resolving.
func (s *Service) Resend(ctx context.Context, in ResendInput) (*domain.Invitation, error) {
	if err := policies.RequireOrgAdmin(s.DB.WithContext(ctx), in.ActorID, in.OrgID); err != nil {
		return nil, err
	}
	normalized := strings.ToLower(strings.TrimSpace(in.Email))

	var inv domain.Invitation
	err := s.DB.WithContext(ctx).
		Where("email = ? AND organization_id = ? AND status = ?", normalized, in.OrgID, domain.InviteStatusPending).
		First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPendingNotFound
		}
		return nil, err
	}

	inv.Token = uuid.New().String()
	inv.ExpiresAt = time.Now().Add(inviteExpiry)
	if err := s.DB.WithContext(ctx).Model(&inv).Updates(map[string]interface{}{
		"token":      inv.Token,
		"expires_at": inv.ExpiresAt,
	}).Error; err != nil {
		return nil, err
	}

	var role domain.Role
	roleName := ""
	if err := s.DB.WithContext(ctx).Where("id = ?", inv.RoleID).First(&role).Error; err == nil {
		roleName = role.Name
	}
	s.composeInviteEmail(ctx, &inv, roleName)
	return &inv, nil
}

// CancelInput identifies the invitation to cancel.
type CancelInput struct {
	ActorID uuid.UUID
	OrgID   uuid.UUID
	Email   string `json:"email"`
}

// Cancel removes a pending invitation outright. The token stops resolving
// immediately; there is no cancelled state to list.
func (s *Service) Cancel(ctx context.Context, in CancelInput) error {
	if err := policies.RequireOrgAdmin(s.DB.WithContext(ctx), in.ActorID, in.OrgID); err != nil {
		return err
	}
	normalized := strings.ToLower(strings.TrimSpace(in.Email))

	var inv domain.Invitation
	err := s.DB.WithContext(ctx).
		Where("email = ? AND organization_id = ? AND status = ?", normalized, in.OrgID, domain.InviteStatusPending).
		First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrPendingNotFound
		}
		return err
	}
	return s.DB.WithContext(ctx).Delete(&inv).Error
}

// ListView is one row of the org invitations listing.
type ListView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"createdAt"`
}

// List returns an organization's invitations, optionally filtered by status,
// newest first. Pending rows past expiry are flipped before listing.
func (s *Service) List(ctx context.Context, actorID, orgID uuid.UUID, status string) ([]ListView, error) {
	if err := policies.RequireOrgAdmin(s.DB.WithContext(ctx), actorID, orgID); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&domain.Invitation{}).
		Where("organization_id = ? AND status = ? AND expires_at < ?", orgID, domain.InviteStatusPending, time.Now()).
		Update("status", domain.InviteStatusExpired).Error; err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).
		Table("invitations").
		Select("invitations.id, invitations.email, invitations.name, roles.name AS role, invitations.status, invitations.expires_at, invitations.created_at").
		Joins("JOIN roles ON roles.id = invitations.role_id").
		Where("invitations.organization_id = ?", orgID)
	if status != "" {
		q = q.Where("invitations.status = ?", status)
	}

	var out []ListView
	if err := q.Order("invitations.created_at DESC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
