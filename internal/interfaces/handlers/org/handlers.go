package org

import (
	orgsvc "approvalflow-backend/internal/application/org"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/constants"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for organization endpoints.
type Handlers struct {
	Service *orgsvc.Service
	Config  middleware.SessionConfig
}

// Onboard POST /api/v1/orgs/onboard
func (h *Handlers) Onboard(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	userID, err := uuid.Parse(actor.UserID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req orgsvc.OnboardInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Organization name is required", fiber.StatusBadRequest, nil)
	}

	org, err := h.Service.Onboard(c.Context(), userID, req)
	if err != nil {
		switch err {
		case orgsvc.ErrNameRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case orgsvc.ErrAlreadyInOrg:
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		case orgsvc.ErrEmailUnverified:
			return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	// Refresh the session: the caller is now this org's admin.
	name := actor.Name
	if n := req.AdminName; n != "" {
		name = n
	}
	orgIDStr := org.ID.String()
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:         actor.UserID,
		Name:           name,
		Email:          actor.Email,
		Role:           constants.Admin,
		OrganizationID: &orgIDStr,
	})
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sessionID
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "Organization created", fiber.Map{"organization": org}, nil)
}

// View GET /api/v1/orgs/view-org
func (h *Handlers) View(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if actor == nil || actor.OrganizationID == "" {
		return response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
	}
	orgID, err := uuid.Parse(actor.OrganizationID)
	if err != nil {
		return response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.View(c.Context(), orgID)
	if err != nil {
		if err == orgsvc.ErrOrgNotFound {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Organization retrieved", view, nil)
}

// Update PATCH /api/v1/orgs/update-org
func (h *Handlers) Update(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if actor == nil || actor.OrganizationID == "" {
		return response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
	}
	orgID, err := uuid.Parse(actor.OrganizationID)
	if err != nil {
		return response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
	}

	var req orgsvc.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	org, err := h.Service.Update(c.Context(), orgID, req)
	if err != nil {
		switch err {
		case orgsvc.ErrNameRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case orgsvc.ErrOrgNotFound:
			return response.NotFound(c, err.Error())
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "Organization updated", fiber.Map{"organization": org}, nil)
}
