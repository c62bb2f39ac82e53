package users

import (
	userssvc "approvalflow-backend/internal/application/users"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for member management endpoints.
type Handlers struct {
	Service *userssvc.Service
}

// orgScope writes the rejection itself; callers must stop when ok is false.
func orgScope(c *fiber.Ctx) (actorID, orgID uuid.UUID, ok bool) {
	actor := middleware.Actor(c)
	if actor == nil {
		_ = response.Unauthorized(c, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	actorID, err := uuid.Parse(actor.UserID)
	if err != nil {
		_ = response.Unauthorized(c, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	orgID, err = uuid.Parse(actor.OrganizationID)
	if err != nil {
		_ = response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, orgID, true
}

// List GET /api/v1/users/view-users
func (h *Handlers) List(c *fiber.Ctx) error {
	_, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	members, svcErr := h.Service.List(c.Context(), orgID)
	if svcErr != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Members retrieved", fiber.Map{"members": members}, nil)
}

// UpdateRoleRequest body for role reassignment.
type UpdateRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/update-role
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}

	member, svcErr := h.Service.UpdateRole(c.Context(), actorID, orgID, targetID, req.Role)
	if svcErr != nil {
		switch svcErr {
		case userssvc.ErrSelfModification:
			return response.Error(c, svcErr.Error(), fiber.StatusForbidden, nil)
		case userssvc.ErrUnknownRole:
			return response.Error(c, svcErr.Error(), fiber.StatusBadRequest, nil)
		case userssvc.ErrUserNotInOrg:
			return response.NotFound(c, svcErr.Error())
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "Role updated", fiber.Map{"member": member}, nil)
}

// RemoveRequest body for removing a member.
type RemoveRequest struct {
	UserID string `json:"user_id"`
}

// Remove DELETE /api/v1/users/remove-user
func (h *Handlers) Remove(c *fiber.Ctx) error {
	actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	var req RemoveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}

	if svcErr := h.Service.Remove(c.Context(), actorID, orgID, targetID); svcErr != nil {
		switch svcErr {
		case userssvc.ErrSelfModification:
			return response.Error(c, svcErr.Error(), fiber.StatusForbidden, nil)
		case userssvc.ErrUserNotInOrg:
			return response.NotFound(c, svcErr.Error())
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "User removed from organization", nil, nil)
}
