package invitations

import (
	"context"

	invsvc "approvalflow-backend/internal/application/invitations"
	"approvalflow-backend/internal/application/invitations/policies"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for invitation endpoints.
type Handlers struct {
	Service *invsvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// statusFor maps service and policy errors onto HTTP statuses.
func statusFor(err error) int {
	switch err {
	case policies.ErrSelfInvite, policies.ErrAlreadyMember, policies.ErrPendingExists,
		invsvc.ErrInvalidEmail, invsvc.ErrUnknownRole, invsvc.ErrWeakPassword,
		policies.ErrNoLongerPending, policies.ErrExpired, policies.ErrEmailMismatch,
		invsvc.ErrInvalidToken:
		return fiber.StatusBadRequest
	case policies.ErrAdminOnly:
		return fiber.StatusForbidden
	case invsvc.ErrEmailTaken:
		return fiber.StatusConflict
	case invsvc.ErrNotFound, invsvc.ErrPendingNotFound:
		return fiber.StatusNotFound
	default:
		return 0
	}
}

func fail(c *fiber.Ctx, err error) error {
	if code := statusFor(err); code != 0 {
		return response.Error(c, err.Error(), code, nil)
	}
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// orgScope writes the rejection itself; callers must stop when ok is false.
func orgScope(c *fiber.Ctx) (actor *middleware.SessionActor, actorID, orgID uuid.UUID, ok bool) {
	actor = middleware.Actor(c)
	if actor == nil {
		_ = response.Unauthorized(c, "Unauthorized")
		return nil, uuid.Nil, uuid.Nil, false
	}
	actorID, err := uuid.Parse(actor.UserID)
	if err != nil {
		_ = response.Unauthorized(c, "Unauthorized")
		return nil, uuid.Nil, uuid.Nil, false
	}
	orgID, err = uuid.Parse(actor.OrganizationID)
	if err != nil {
		_ = response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
		return nil, uuid.Nil, uuid.Nil, false
	}
	return actor, actorID, orgID, true
}

// CreateRequest body for sending an invitation.
type CreateRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Create POST /api/v1/invitations/create-invite
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "email and role are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Role == "" {
		return response.Error(c, "email and role are required", fiber.StatusBadRequest, nil)
	}

	inv, svcErr := h.Service.Create(c.Context(), invsvc.CreateInput{
		ActorID:    actorID,
		ActorEmail: actor.Email,
		OrgID:      orgID,
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
	})
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.SuccessCreated(c, "Invitation sent", fiber.Map{"invitation": inv}, nil)
}

// CheckToken GET /api/v1/invitations/public/check-token?token=...
func (h *Handlers) CheckToken(c *fiber.Ctx) error {
	token := c.Query("token")
	view, err := h.Service.CheckToken(c.Context(), token)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Invitation retrieved", fiber.Map{"invitation": view}, nil)
}

// Accept POST /api/v1/invitations/public/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	var req invsvc.AcceptInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "token and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Token == "" || req.Password == "" {
		return response.Error(c, "token and password are required", fiber.StatusBadRequest, nil)
	}

	result, err := h.Service.Accept(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}

	// Log the new member in immediately.
	orgIDStr := result.Organization.ID.String()
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:         result.User.ID.String(),
		Name:           result.User.Name,
		Email:          result.User.Email,
		Role:           result.Role,
		OrganizationID: &orgIDStr,
	})
	if h.Rdb != nil {
		_ = h.Rdb.SAdd(context.Background(), userSessionsPrefix+result.User.ID.String(), sessionID).Err()
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sessionID
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "Invitation accepted", fiber.Map{
		"user": fiber.Map{
			"user_id":         result.User.ID.String(),
			"name":            result.User.Name,
			"email":           result.User.Email,
			"role":            result.Role,
			"organization_id": orgIDStr,
		},
		"organization": result.Organization,
	}, nil)
}

// EmailRequest identifies an invitation by email within the actor's org.
type EmailRequest struct {
	Email string `json:"email"`
}

// Resend POST /api/v1/invitations/resend-invite
func (h *Handlers) Resend(c *fiber.Ctx) error {
	_, actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	var req EmailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Error(c, "email is required", fiber.StatusBadRequest, nil)
	}

	inv, svcErr := h.Service.Resend(c.Context(), invsvc.ResendInput{
		ActorID: actorID,
		OrgID:   orgID,
		Email:   req.Email,
	})
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Invitation resent", fiber.Map{"invitation": inv}, nil)
}

// Cancel DELETE /api/v1/invitations/cancel-invite
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	_, actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	var req EmailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Error(c, "email is required", fiber.StatusBadRequest, nil)
	}

	if svcErr := h.Service.Cancel(c.Context(), invsvc.CancelInput{
		ActorID: actorID,
		OrgID:   orgID,
		Email:   req.Email,
	}); svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Invitation cancelled", nil, nil)
}

// List GET /api/v1/invitations/view-invites?status=pending
func (h *Handlers) List(c *fiber.Ctx) error {
	_, actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	invites, svcErr := h.Service.List(c.Context(), actorID, orgID, c.Query("status"))
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Invitations retrieved", fiber.Map{"invitations": invites}, nil)
}
