package dashboard

import (
	dashsvc "approvalflow-backend/internal/application/dashboard"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for the dashboard endpoint.
type Handlers struct {
	Service *dashsvc.Service
}

// Summary GET /api/v1/dashboard/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if actor.OrganizationID == "" {
		return response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
	}
	orgID, err := uuid.Parse(actor.OrganizationID)
	if err != nil {
		return response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
	}

	summary, svcErr := h.Service.Summarize(c.Context(), orgID)
	if svcErr != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Dashboard summary retrieved", summary, nil)
}
