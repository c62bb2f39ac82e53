package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"approvalflow-backend/internal/application/emails"
	"approvalflow-backend/internal/application/membership"
	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/saga"
	"approvalflow-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

// Service handles signup, email confirmation and login.
type Service struct {
	DB      *gorm.DB
	Sender  emails.Sender
	BaseURL string
}

// RegisterInput for the signup request body.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Credentials for the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionProfile is what login resolves: the profile row plus the role held
// in the user's organization, if any.
type SessionProfile struct {
	User      *domain.User
	Role      string
	Confirmed bool
}

// Register creates an auth identity and its profile row. The identity is
// created first and deleted again if the profile insert fails, so the two
// never diverge. A confirmation email is composed best-effort.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	var existing domain.AuthIdentity
	if err := s.DB.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	token := uuid.New().String()
	identity := domain.AuthIdentity{
		Email:             in.Email,
		PasswordHash:      string(hash),
		ConfirmationToken: &token,
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
					ID:    identity.ID,
					Email: identity.Email,
					Name:  strings.TrimSpace(in.Name),
				}
				return s.DB.WithContext(ctx).Create(&user).Error
			},
		},
	)
	if err != nil {
		return nil, err
	}

	confirmLink := fmt.Sprintf("%s/confirm-email?token=%s", s.BaseURL, token)
	if err := s.Sender.SendConfirmation(ctx, user.Email, user.Name, confirmLink); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("confirmation email failed")
	}
	return &user, nil
}

// ConfirmEmail marks the identity behind the token as confirmed. Confirming
// an already-confirmed identity is a no-op success.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	var identity domain.AuthIdentity
	if err := s.DB.WithContext(ctx).Where("confirmation_token = ?", token).First(&identity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrInvalidToken
		}
		return err
	}
	if identity.Confirmed() {
		return nil
	}
	now := time.Now()
	return s.DB.WithContext(ctx).Model(&identity).Update("confirmed_at", &now).Error
}

// Authenticate verifies credentials and resolves the session profile.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*SessionProfile, error) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var identity domain.AuthIdentity
	if err := s.DB.WithContext(ctx).Where("email = ?", creds.Email).First(&identity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}

	var user domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", identity.ID).First(&user).Error; err != nil {
		return nil, err
	}

	role := ""
	if user.OrganizationID != nil {
		r, err := membership.RoleOf(ctx, s.DB, user.ID, *user.OrganizationID)
		if err != nil {
			return nil, err
		}
		role = r
	}
	return &SessionProfile{User: &user, Role: role, Confirmed: identity.Confirmed()}, nil
}
