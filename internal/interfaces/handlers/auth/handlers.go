package auth

import (
	"context"

	authsvc "approvalflow-backend/internal/application/auth"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// Register POST /api/v1/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req authsvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.Service.Register(c.Context(), req)
	if err != nil {
		switch err {
		case authsvc.ErrEmailPasswordRequired, authsvc.ErrInvalidEmail, authsvc.ErrWeakPassword:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case authsvc.ErrEmailTaken:
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	h.startSession(c, middleware.SessionUser{
		UserID: user.ID.String(),
		Name:   user.Name,
		Email:  user.Email,
	})

	return response.SuccessCreated(c, "Account created. Check your email to confirm your address.", fiber.Map{
		"user": fiber.Map{
			"user_id": user.ID.String(),
			"name":    user.Name,
			"email":   user.Email,
		},
	}, nil)
}

// ConfirmEmail POST /api/v1/auth/confirm-email
func (h *Handlers) ConfirmEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Confirmation token is required", fiber.StatusBadRequest, nil)
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}

	if err := h.Service.ConfirmEmail(c.Context(), req.Token); err != nil {
		if err == authsvc.ErrInvalidToken {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Email confirmed", nil, nil)
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req authsvc.Credentials
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	profile, err := h.Service.Authenticate(c.Context(), req)
	if err != nil {
		switch err {
		case authsvc.ErrEmailPasswordRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case authsvc.ErrInvalidEmail, authsvc.ErrIncorrectPassword:
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	user := profile.User
	var orgIDStr *string
	if user.OrganizationID != nil {
		s := user.OrganizationID.String()
		orgIDStr = &s
	}

	h.startSession(c, middleware.SessionUser{
		UserID:         user.ID.String(),
		Name:           user.Name,
		Email:          user.Email,
		Role:           profile.Role,
		OrganizationID: orgIDStr,
	})

	return response.Success(c, "Login successful", fiber.Map{
		"user": fiber.Map{
			"user_id":         user.ID.String(),
			"name":            user.Name,
			"email":           user.Email,
			"role":            profile.Role,
			"organization_id": orgIDStr,
			"confirmed":       profile.Confirmed,
		},
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if actor == nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	var orgID *string
	if actor.OrganizationID != "" {
		orgID = &actor.OrganizationID
	}
	return response.Success(c, "Authenticated", fiber.Map{
		"user": fiber.Map{
			"user_id":         actor.UserID,
			"name":            actor.Name,
			"email":           actor.Email,
			"role":            actor.Role,
			"organization_id": orgID,
		},
	}, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	actor := middleware.Actor(c)

	ctx := context.Background()
	if actor != nil && sessionID != "" && h.Rdb != nil {
		_ = h.Rdb.SRem(ctx, userSessionsPrefix+actor.UserID, sessionID).Err()
	}
	if sessionID != "" && h.Rdb != nil {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}

	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

// startSession rotates the session id, stores the user and sets the cookie.
func (h *Handlers) startSession(c *fiber.Ctx, user middleware.SessionUser) {
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, user)

	if h.Rdb != nil {
		_ = h.Rdb.SAdd(context.Background(), userSessionsPrefix+user.UserID, sessionID).Err()
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sessionID
	c.Cookie(&cookie)
}
